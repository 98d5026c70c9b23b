// Package zaplogger is the process-wide structured logger
package zaplogger

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// LogsTableName is the table the database writer appends to
var LogsTableName = "_app_logs"

const timeLayout = "2006-01-02T15:04:05.999-0700"

var (
	mu        sync.RWMutex
	log       *zap.Logger
	zapConfig zap.Config
)

// Fields type, used to pass to `WithFields`.
type Fields map[string]interface{}

// LogModel represents the structure of the log entry in the database
type LogModel struct {
	ID        uint      `gorm:"primaryKey"`
	Timestamp time.Time `gorm:"index"`
	Level     string    `gorm:"index"`
	Caller    string
	Message   string
	Fields    datatypes.JSON `gorm:"type:jsonb"`
}

// TableName specifies the table name for LogModel
func (LogModel) TableName() string {
	return LogsTableName
}

// DbWriter implements zapcore.WriteSyncer for database logging using GORM
type DbWriter struct {
	db *gorm.DB
}

// logLine is the JSON shape produced by the database encoder
type logLine struct {
	Level     string `json:"level"`
	Timestamp string `json:"timestamp"`
	Caller    string `json:"caller"`
	Message   string `json:"message"`
}

func (w *DbWriter) Write(p []byte) (n int, err error) {
	var line logLine
	if err := json.Unmarshal(p, &line); err != nil {
		return 0, err
	}

	var raw map[string]json.RawMessage
	if err := json.Unmarshal(p, &raw); err != nil {
		return 0, err
	}
	for _, k := range []string{"level", "timestamp", "caller", "message"} {
		delete(raw, k)
	}
	fieldsJSON, err := json.Marshal(raw)
	if err != nil {
		return 0, err
	}

	timestamp, err := time.Parse(timeLayout, line.Timestamp)
	if err != nil {
		return 0, err
	}

	record := LogModel{
		Timestamp: timestamp,
		Level:     line.Level,
		Caller:    line.Caller,
		Message:   line.Message,
		Fields:    datatypes.JSON(fieldsJSON),
	}
	if err := w.db.Create(&record).Error; err != nil {
		return 0, err
	}
	return len(p), nil
}

func (w *DbWriter) Sync() error {
	return nil
}

func customTimeEncoder(t time.Time, enc zapcore.PrimitiveArrayEncoder) {
	enc.AppendString(t.Format(timeLayout))
}

func init() {
	zapConfig = zap.Config{
		Encoding:         "console",
		Level:            zap.NewAtomicLevelAt(zap.InfoLevel),
		OutputPaths:      []string{"stdout"},
		ErrorOutputPaths: []string{"stderr"},
		EncoderConfig: zapcore.EncoderConfig{
			MessageKey:   "message",
			LevelKey:     "level",
			TimeKey:      "timestamp",
			CallerKey:    "caller",
			EncodeLevel:  zapcore.CapitalLevelEncoder,
			EncodeTime:   customTimeEncoder,
			EncodeCaller: zapcore.ShortCallerEncoder,
		},
	}

	l, err := zapConfig.Build(zap.AddCallerSkip(1))
	if err != nil {
		panic(err)
	}
	log = l
}

// InitLogger tees console output into the database logs table
func InitLogger(db *gorm.DB) error {
	if err := db.AutoMigrate(&LogModel{}); err != nil {
		return fmt.Errorf("failed to auto migrate %s: %w", LogsTableName, err)
	}

	dbWriter := &DbWriter{db: db}
	consoleEncoder := zapcore.NewConsoleEncoder(zapConfig.EncoderConfig)
	dbEncoder := zapcore.NewJSONEncoder(zapConfig.EncoderConfig)

	core := zapcore.NewTee(
		zapcore.NewCore(consoleEncoder, zapcore.AddSync(os.Stdout), zapConfig.Level),
		// Only warnings and above are worth a row.
		zapcore.NewCore(dbEncoder, zapcore.AddSync(dbWriter), zap.WarnLevel),
	)

	mu.Lock()
	log = zap.New(core, zap.AddCaller(), zap.AddCallerSkip(1))
	mu.Unlock()
	return nil
}

// Replace swaps the underlying zap logger, e.g. zap.NewNop() in tests
func Replace(l *zap.Logger) {
	mu.Lock()
	log = l.WithOptions(zap.AddCallerSkip(1))
	mu.Unlock()
}

// ParseLevel converts debug|info|warn|error to a zap level. Unknown → info.
func ParseLevel(level string) zapcore.Level {
	switch strings.ToLower(strings.TrimSpace(level)) {
	case "debug":
		return zapcore.DebugLevel
	case "info":
		return zapcore.InfoLevel
	case "warn", "warning":
		return zapcore.WarnLevel
	case "error":
		return zapcore.ErrorLevel
	default:
		return zapcore.InfoLevel
	}
}

// SetLogLevel sets the console logging level
func SetLogLevel(level string) {
	zapConfig.Level.SetLevel(ParseLevel(level))
}

func logger() *zap.Logger {
	mu.RLock()
	defer mu.RUnlock()
	return log
}

// Info logs an info message
func Info(msg string, fields ...Fields) {
	logger().Info(msg, getZapFields(fields)...)
}

// Debug logs a debug message
func Debug(msg string, fields ...Fields) {
	logger().Debug(msg, getZapFields(fields)...)
}

// Warn logs a warning message
func Warn(msg string, fields ...Fields) {
	logger().Warn(msg, getZapFields(fields)...)
}

// Error logs an error message
func Error(msg string, fields ...Fields) {
	logger().Error(msg, getZapFields(fields)...)
}

// Fatal logs a fatal message and exits the program
func Fatal(msg string, fields ...Fields) {
	logger().Fatal(msg, getZapFields(fields)...)
}

// WithFields adds fields to the logger
func WithFields(fields Fields) *zap.Logger {
	return logger().With(getZapFields([]Fields{fields})...)
}

// TimeTrack logs the time taken since start
func TimeTrack(start time.Time, name string) {
	elapsed := time.Since(start)
	Debug(name+" took "+elapsed.String(), Fields{"duration": elapsed})
}

// getZapFields converts the first Fields value to zap fields
func getZapFields(fields []Fields) []zap.Field {
	if len(fields) == 0 {
		return nil
	}
	zapFields := make([]zap.Field, 0, len(fields[0]))
	for k, v := range fields[0] {
		zapFields = append(zapFields, zap.Any(k, v))
	}
	return zapFields
}

// Sync flushes any buffered log entries
func Sync() error {
	return logger().Sync()
}
