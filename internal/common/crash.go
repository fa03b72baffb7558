// -----------------------------------------------------------------------
// Crash Protection - Fatal error handling and crash file generation
// -----------------------------------------------------------------------

package common

import (
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"time"
)

// CrashLogDir is the directory where crash files will be written
var CrashLogDir = "./logs"

// WriteCrashFile writes a crash report and returns its path, or "" if the file could not be written.
func WriteCrashFile(panicVal interface{}, stackTrace string) string {
	crashPath := filepath.Join(CrashLogDir, fmt.Sprintf("crash-%s.log", time.Now().Format("2006-01-02T15-04-05")))

	var report strings.Builder
	report.WriteString("=== HEALTHSCOPE CRASH REPORT ===\n")
	fmt.Fprintf(&report, "Time: %s\n", time.Now().Format(time.RFC3339))
	fmt.Fprintf(&report, "Version: %s\n", GetFullVersion())
	fmt.Fprintf(&report, "Panic: %v\n\n", panicVal)
	report.WriteString("=== STACK TRACE ===\n")
	report.WriteString(stackTrace)
	fmt.Fprintf(&report, "\nNumGoroutine: %d\n", runtime.NumGoroutine())

	if err := os.MkdirAll(CrashLogDir, 0755); err != nil {
		fmt.Fprintf(os.Stderr, "CRASH: %v\n%s", err, report.String())
		return ""
	}
	if err := os.WriteFile(crashPath, []byte(report.String()), 0644); err != nil {
		fmt.Fprintf(os.Stderr, "CRASH: Failed to write crash file: %v\n%s", err, report.String())
		return ""
	}

	fmt.Fprintf(os.Stderr, "\n!!! FATAL CRASH - Report saved to: %s !!!\n", crashPath)
	return crashPath
}

// RecoverWithCrashFile is deferred at the top of main.
// Usage: defer common.RecoverWithCrashFile()
func RecoverWithCrashFile() {
	if r := recover(); r != nil {
		WriteCrashFile(r, GetStackTrace())
		os.Exit(1)
	}
}
