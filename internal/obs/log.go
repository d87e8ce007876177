package obs

import (
	"encoding/json"
	"log"
	"os"
	"sync"
)

var (
	loggerOnce sync.Once
	logger     *log.Logger
)

// Logger returns the shared structured logger used across the service.
func Logger() *log.Logger {
	loggerOnce.Do(func() {
		logger = log.New(os.Stdout, "", 0)
	})
	return logger
}

// LogRequest emits a structured JSON log line with common HTTP fields.
func LogRequest(entry map[string]any) {
	data, err := json.Marshal(entry)
	if err != nil {
		// Entries are built from plain scalars, so this path should stay
		// dead; keep the fallback parseable for the log pipeline anyway.
		Logger().Println(`{"level":"error","service":"gymstack-api","msg":"request log entry not marshalable"}`)
		return
	}
	Logger().Println(string(data))
}
