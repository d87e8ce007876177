package main

import (
	"context"
	"log"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"google.golang.org/grpc"
	"google.golang.org/grpc/health/grpc_health_v1"

	"gymstack.io/internal/auth"
	"gymstack.io/internal/httpapi"
	"gymstack.io/internal/obs"
	"gymstack.io/internal/store/pg"
	"gymstack.io/internal/stream"
)

var (
	version = "0.3.1"
	commit  = "dev"
)

func main() {
	obs.Init()
	obs.InitBuildInfo(version, commit)

	dsn := os.Getenv("GYMSTACK_PG_DSN")
	if dsn == "" {
		log.Fatal("missing GYMSTACK_PG_DSN")
	}
	st, err := pg.Open(dsn)
	if err != nil {
		log.Fatalf("open db: %v", err)
	}
	defer st.Close()

	tokens, err := auth.NewService(st, st)
	if err != nil {
		log.Fatalf("auth service: %v", err)
	}
	engine, err := auth.NewEngine(st)
	if err != nil {
		log.Fatalf("authorization engine: %v", err)
	}
	directory, err := auth.NewDirectory(st, st)
	if err != nil {
		log.Fatalf("directory service: %v", err)
	}

	probe := httpapi.ReadyProbe{DB: st.DB()}
	api := httpapi.New(probe, version, httpapi.Deps{
		Resolver:  auth.NewResolver(st),
		Tokens:    tokens,
		Engine:    engine,
		Directory: directory,
		Events:    stream.New(),
	})

	httpAddr := os.Getenv("GYMSTACK_HTTP_ADDR")
	if httpAddr == "" {
		httpAddr = ":8080"
	}
	srv := &http.Server{
		Addr:              httpAddr,
		Handler:           api.Handler(),
		ReadTimeout:       15 * time.Second,
		ReadHeaderTimeout: 15 * time.Second,
		WriteTimeout:      15 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	grpcAddr := os.Getenv("GYMSTACK_GRPC_ADDR")
	if grpcAddr == "" {
		grpcAddr = ":9090"
	}
	grpcLis, err := net.Listen("tcp", grpcAddr)
	if err != nil {
		log.Fatalf("listen grpc: %v", err)
	}
	grpcSrv := grpc.NewServer()
	grpc_health_v1.RegisterHealthServer(grpcSrv, httpapi.NewHealthServer(probe))

	log.Printf("Starting gymstack-api %s on %s (grpc %s)", version, srv.Addr, grpcAddr)

	go func() {
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("listen: %v", err)
		}
	}()
	go func() {
		if err := grpcSrv.Serve(grpcLis); err != nil {
			log.Fatalf("grpc serve: %v", err)
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)

	<-stop
	log.Println("Shutting down...")

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	_ = srv.Shutdown(ctx)
	grpcSrv.GracefulStop()
	log.Println("Stopped")
}
