package logger

import (
	"archive/zip"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/sirupsen/logrus"
)

// base is shared by every package. Before the service starts it writes text
// to stderr, which is what tests and the CLI see.
var base = logrus.New()

// L returns the process logger.
func L() logrus.FieldLogger {
	return base
}

// Or returns l, or the process logger when l is nil.
func Or(l logrus.FieldLogger) logrus.FieldLogger {
	if l == nil {
		return base
	}
	return l
}

// Discard is a logger that drops everything; handy in tests.
func Discard() logrus.FieldLogger {
	l := logrus.New()
	l.SetOutput(io.Discard)
	return l
}

type LoggerService struct {
	Config        map[string]interface{}
	file          *os.File
	mu            sync.Mutex
	stopCh        chan struct{}
	wg            sync.WaitGroup
	currentLog    string
	maxFileBytes  int64
	retentionDays int
	folderPath    string
	level         logrus.Level
	console       bool
}

func intSetting(config map[string]interface{}, key string) int {
	switch v := config[key].(type) {
	case int:
		return v
	case float64:
		return int(v)
	}
	return 0
}

func NewLoggerService(config map[string]interface{}) *LoggerService {
	folder, _ := config["folder_path"].(string)
	if folder == "" {
		folder = "./logs"
	}
	level := logrus.InfoLevel
	if s, ok := config["level"].(string); ok && s != "" {
		if parsed, err := logrus.ParseLevel(s); err == nil {
			level = parsed
		}
	}
	console, _ := config["console"].(bool)

	return &LoggerService{
		Config:        config,
		stopCh:        make(chan struct{}),
		maxFileBytes:  int64(intSetting(config, "max_file_mb")) * 1024 * 1024,
		retentionDays: intSetting(config, "retention_days"),
		folderPath:    folder,
		level:         level,
		console:       console,
	}
}

func (l *LoggerService) Name() string {
	return "Logger"
}

func (l *LoggerService) Start() error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if err := os.MkdirAll(l.folderPath, 0755); err != nil {
		return err
	}
	logFile := l.nextLogFileName()
	file, err := os.OpenFile(logFile, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0644)
	if err != nil {
		return err
	}
	l.file = file
	l.currentLog = logFile

	base.SetFormatter(&logrus.JSONFormatter{TimestampFormat: time.RFC3339})
	base.SetLevel(l.level)
	l.attach(file)
	base.WithField("file", logFile).Info("logger started")

	// background goroutine for rotation and retention
	l.wg.Add(1)
	go l.backgroundWorker()

	return nil
}

// attach points the shared logger at file, and at stdout too in dev mode.
func (l *LoggerService) attach(file *os.File) {
	if l.console {
		base.SetOutput(io.MultiWriter(file, os.Stdout))
		return
	}
	base.SetOutput(file)
}

func (l *LoggerService) Stop() error {
	close(l.stopCh)
	l.wg.Wait()
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.file != nil {
		base.Info("logger stopping")
		base.SetOutput(os.Stderr)
		return l.file.Close()
	}
	return nil
}

func (l *LoggerService) nextLogFileName() string {
	timestamp := time.Now().Format("20060102_150405")
	return filepath.Join(l.folderPath, fmt.Sprintf("periodmap_%s.log", timestamp))
}

func (l *LoggerService) rotateIfNeeded() error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.file == nil || l.maxFileBytes <= 0 {
		return nil
	}
	info, err := l.file.Stat()
	if err != nil {
		return err
	}
	if info.Size() < l.maxFileBytes {
		return nil
	}

	newLog := l.nextLogFileName()
	file, err := os.OpenFile(newLog, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0644)
	if err != nil {
		return err
	}
	l.attach(file)
	l.file.Close()
	l.file = file
	l.currentLog = newLog
	base.WithField("file", newLog).Info("rotated log file")
	return nil
}

func (l *LoggerService) backgroundWorker() {
	defer l.wg.Done()
	ticker := time.NewTicker(10 * time.Second)
	retentionTicker := time.NewTicker(24 * time.Hour)
	defer ticker.Stop()
	defer retentionTicker.Stop()

	for {
		select {
		case <-l.stopCh:
			return
		case <-ticker.C:
			if err := l.rotateIfNeeded(); err != nil {
				base.WithError(err).Warn("log rotation failed")
			}
		case <-retentionTicker.C:
			l.zipAndCleanOldLogs()
		}
	}
}

// zipAndCleanOldLogs moves logs older than the retention window into a
// daily archive.
func (l *LoggerService) zipAndCleanOldLogs() {
	if l.retentionDays <= 0 {
		return
	}
	cutoff := time.Now().AddDate(0, 0, -l.retentionDays)
	files, err := os.ReadDir(l.folderPath)
	if err != nil {
		return
	}
	zipName := filepath.Join(l.folderPath, fmt.Sprintf("logs_%s.zip", time.Now().Format("20060102")))
	zipFile, err := os.Create(zipName)
	if err != nil {
		return
	}
	defer zipFile.Close()
	zipWriter := zip.NewWriter(zipFile)
	defer zipWriter.Close()

	l.mu.Lock()
	current := l.currentLog
	l.mu.Unlock()

	for _, f := range files {
		if f.IsDir() || filepath.Ext(f.Name()) != ".log" {
			continue
		}
		fullPath := filepath.Join(l.folderPath, f.Name())
		if fullPath == current {
			continue
		}
		info, err := os.Stat(fullPath)
		if err != nil || info.ModTime().After(cutoff) {
			continue
		}
		w, err := zipWriter.Create(f.Name())
		if err != nil {
			continue
		}
		src, err := os.Open(fullPath)
		if err != nil {
			continue
		}
		io.Copy(w, src)
		src.Close()
		os.Remove(fullPath)
	}
}

// LogAudit records a user-visible state change (saves, deactivations).
func (l *LoggerService) LogAudit(msg string, fields logrus.Fields) {
	base.WithFields(fields).WithField("audit", true).Info(msg)
}

var GlobalLogger *LoggerService

func SetGlobalLogger(l *LoggerService) {
	GlobalLogger = l
}

// Audit forwards to the global service when one is running.
func Audit(msg string, fields logrus.Fields) {
	if GlobalLogger != nil {
		GlobalLogger.LogAudit(msg, fields)
		return
	}
	base.WithFields(fields).WithField("audit", true).Info(msg)
}
