package auth

import (
	"errors"
	"testing"
)

func TestParseCategory(t *testing.T) {
	cat, err := ParseCategory(" membership ")
	if err != nil {
		t.Fatalf("ParseCategory: %v", err)
	}
	if cat != CategoryMembership {
		t.Fatalf("cat = %q, want %q", cat, CategoryMembership)
	}
	if _, err := ParseCategory("SPACESHIP"); !errors.Is(err, ErrInvalidInput) {
		t.Fatalf("err = %v, want ErrInvalidInput", err)
	}
}

func TestParseOperation(t *testing.T) {
	op, err := ParseOperation("READ")
	if err != nil {
		t.Fatalf("ParseOperation: %v", err)
	}
	if op != OpRead {
		t.Fatalf("op = %q, want %q", op, OpRead)
	}
	if _, err := ParseOperation("execute"); !errors.Is(err, ErrInvalidInput) {
		t.Fatalf("err = %v, want ErrInvalidInput", err)
	}
}

func TestAccessRightAllows(t *testing.T) {
	right := AccessRight{Category: CategoryWorkout, Read: true, Update: true}
	tests := []struct {
		cat  Category
		op   Operation
		want bool
	}{
		{CategoryWorkout, OpRead, true},
		{CategoryWorkout, OpUpdate, true},
		{CategoryWorkout, OpCreate, false},
		{CategoryWorkout, OpDelete, false},
		{CategoryExercise, OpRead, false},
	}
	for _, tc := range tests {
		if got := right.Allows(tc.cat, tc.op); got != tc.want {
			t.Fatalf("Allows(%s, %s) = %v, want %v", tc.cat, tc.op, got, tc.want)
		}
	}
}
