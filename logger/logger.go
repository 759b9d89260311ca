package logger

import (
	"fmt"
	"os"
	"path/filepath"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"gopkg.in/natefinch/lumberjack.v2"
)

type LulaLogger interface {
	Logger() *zap.Logger
	LogStream() *lumberjack.Logger
	Close()
	PrintInfo(fmtStr string, args ...any)
	PrintError(fmtStr string, args ...any)
}

type lulaLogger struct {
	logger  *zap.Logger
	logfile *lumberjack.Logger
	logPath string
}

func NewLogger(logPath string) LulaLogger {
	nl := new(lulaLogger)

	nl.logPath = logPath
	// set log writer
	logWriter := nl.initLogWriter()
	// set encoder config
	encoderConfig := zap.NewProductionEncoderConfig()
	encoderConfig.TimeKey = "timestamp"
	encoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	// set log core
	logCore := nl.initLogCore(encoderConfig, logWriter)
	// set logger
	nl.logger = zap.New(logCore, zap.AddCaller(), zap.AddStacktrace(zapcore.ErrorLevel))
	fmt.Fprintf(os.Stderr, "Log file path: %s\n", nl.logfile.Filename)
	return nl
}

func (logg *lulaLogger) Logger() *zap.Logger {
	return logg.logger
}

func (logg *lulaLogger) LogStream() *lumberjack.Logger {
	return logg.logfile
}

func (logg *lulaLogger) initLogWriter() zapcore.WriteSyncer {
	logg.logfile = &lumberjack.Logger{
		Filename:   logg.getLogFileName(), // log file path
		MaxSize:    128,                   // max file size：M
		MaxBackups: 30,                    // maximum number of backups
		MaxAge:     30,                    // log file save days
		Compress:   true,                  // compressed
	}
	return zapcore.NewMultiWriteSyncer(
		zapcore.AddSync(logg.logfile), // lumberjack
	)
}

func (logg *lulaLogger) initLogCore(config zapcore.EncoderConfig, logWritter zapcore.WriteSyncer) zapcore.Core {
	core := zapcore.NewTee(
		zapcore.NewCore(
			zapcore.NewConsoleEncoder(config),
			logWritter,
			zapcore.DebugLevel,
		),
	)
	return core
}

func (logg *lulaLogger) Close() {
	logg.logger.Sync()
	logg.logfile.Close()
}

func (logg *lulaLogger) PrintInfo(fmtStr string, args ...any) {
	logg.logger.Info(fmt.Sprintf(fmtStr, args...))
}

func (logg *lulaLogger) PrintError(fmtStr string, args ...any) {
	logg.logger.Error(fmt.Sprintf(fmtStr, args...))
}

func (logg *lulaLogger) getLogFileName() string {
	return filepath.Join(logg.logPath, "service.log")
}
