// Copyright 2025 walteh LLC
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package log

import (
	"context"
	"fmt"
	"io"
	"strings"
	"sync"

	"github.com/fatih/color"
	"github.com/rs/zerolog"
	"github.com/walteh/bitablerc/pkg/table"
)

// 🎨 Display configuration
const (
	recordIndent = 4  // spaces to indent record entries
	valueIndent  = 8  // spaces to indent before/after lines
	idWidth      = 20 // width for record ids
	DefaultLimit = 5  // records shown by a preview before truncating
)

// 🎯 Logger renders previews and results to the console and mirrors them to zerolog
type Logger struct {
	zlog    zerolog.Logger
	console io.Writer
	mu      sync.Mutex
}

// 🏭 New creates a new logger
func New(console io.Writer, level zerolog.Level) *Logger {
	zlog := zerolog.New(zerolog.NewConsoleWriter()).With().Timestamp().Logger().Level(level)
	return &Logger{
		zlog:    zlog,
		console: console,
	}
}

// 📝 formatRecordDiff formats one record diff as a header line followed by -/+ lines per field
func formatRecordDiff(d table.RecordDiff) []string {
	noun := "fields"
	if len(d.Diffs) == 1 {
		noun = "field"
	}
	lines := []string{fmt.Sprintf("%*s%s %-*s %s",
		recordIndent, "",
		color.New(color.FgBlue).Sprint("⟳"),
		idWidth, d.RecordID,
		color.New(color.Faint).Sprintf("%d %s", len(d.Diffs), noun))}

	for _, fd := range d.Diffs {
		lines = append(lines,
			fmt.Sprintf("%*s%s", valueIndent-2, "", color.New(color.FgCyan).Sprint(fd.FieldName)),
			fmt.Sprintf("%*s%s", valueIndent, "", color.New(color.FgRed).Sprint("- "+oneLine(fd.Before))),
			fmt.Sprintf("%*s%s", valueIndent, "", color.New(color.FgGreen).Sprint("+ "+oneLine(fd.After))),
		)
	}
	return lines
}

// oneLine keeps multi-line cell values on a single console line
func oneLine(s string) string {
	return strings.ReplaceAll(s, "\n", `\n`)
}

// 📝 StartTable prints the table and the substitution being applied
func (l *Logger) StartTable(ctx context.Context, tableID, pattern, replacement string, regex bool) {
	l.mu.Lock()
	defer l.mu.Unlock()

	mode := "literal"
	if regex {
		mode = "regex"
	}

	fmt.Fprintf(l.console, "%s %s %s %s → %s %s\n",
		color.New(color.FgMagenta).Sprint("◆"),
		color.New(color.Bold).Sprint(tableID),
		color.New(color.Faint).Sprint("•"),
		color.New(color.FgYellow).Sprintf("%q", pattern),
		color.New(color.FgYellow).Sprintf("%q", replacement),
		color.New(color.Faint).Sprintf("(%s)", mode))

	l.zlog.Info().
		Str("table_id", tableID).
		Str("pattern", pattern).
		Str("replacement", replacement).
		Bool("regex", regex).
		Msg("starting table")
}

// 📝 LogPreview prints the first limit diffs and a count of the rest. A
// limit below one shows every diff.
func (l *Logger) LogPreview(ctx context.Context, tableID string, diffs []table.RecordDiff, limit int) {
	l.mu.Lock()
	defer l.mu.Unlock()

	shown := diffs
	if limit > 0 && len(diffs) > limit {
		shown = diffs[:limit]
	}
	for _, d := range shown {
		for _, line := range formatRecordDiff(d) {
			fmt.Fprintln(l.console, line)
		}
	}
	if rest := len(diffs) - len(shown); rest > 0 {
		fmt.Fprintf(l.console, "%*s%s\n", recordIndent, "", color.New(color.Faint).Sprintf("… %d more records...", rest))
	}

	fields := 0
	for _, d := range diffs {
		fields += len(d.Diffs)
	}
	l.zlog.Info().
		Str("table_id", tableID).
		Int("records", len(diffs)).
		Int("fields", fields).
		Msg("preview")
}

// 📝 LogResult prints the outcome of an apply
func (l *Logger) LogResult(ctx context.Context, tableID string, result table.BatchResult) {
	switch {
	case result.Attempted == 0:
		l.Infof("%s: nothing to update", tableID)
	case result.OK():
		l.Successf("%s: updated %d of %d records", tableID, result.Succeeded, result.Attempted)
	default:
		l.Warningf("%s: updated %d of %d records, %d failed", tableID, result.Succeeded, result.Attempted, result.Failed())
	}
}

// 📝 LogNewline logs a newline
func (l *Logger) LogNewline() {
	l.mu.Lock()
	defer l.mu.Unlock()
	fmt.Fprintln(l.console)
}

// 📝 Header logs a header
func (l *Logger) Header(msg string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	name := color.New(color.Bold, color.FgCyan).Sprint("bitablerc")
	fmt.Fprintf(l.console, "\n%s %s\n\n", name, color.New(color.Faint).Sprint("• "+msg))
	l.zlog.Info().Msg(msg)
}

// 📝 Success logs a success message
func (l *Logger) Success(msg string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	fmt.Fprintf(l.console, "✅ %s\n", color.New(color.FgGreen).Sprint(msg))
	l.zlog.Info().Msg(msg)
}

// 📝 Warning logs a warning message
func (l *Logger) Warning(msg string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	fmt.Fprintf(l.console, "⚠️  %s\n", color.New(color.FgYellow).Sprint(msg))
	l.zlog.Warn().Msg(msg)
}

// 📝 Error logs an error message
func (l *Logger) Error(msg string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	fmt.Fprintf(l.console, "❌ %s\n", color.New(color.FgRed).Sprint(msg))
	l.zlog.Error().Msg(msg)
}

// 📝 Info logs an info message
func (l *Logger) Info(msg string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	fmt.Fprintf(l.console, "ℹ️  %s\n", color.New(color.FgCyan).Sprint(msg))
	l.zlog.Info().Msg(msg)
}

// 📝 Infof logs a formatted info message
func (l *Logger) Infof(format string, args ...interface{}) {
	l.Info(fmt.Sprintf(format, args...))
}

// 📝 Warningf logs a formatted warning message
func (l *Logger) Warningf(format string, args ...interface{}) {
	l.Warning(fmt.Sprintf(format, args...))
}

// 📝 Errorf logs a formatted error message
func (l *Logger) Errorf(format string, args ...interface{}) {
	l.Error(fmt.Sprintf(format, args...))
}

// 📝 Successf logs a formatted success message
func (l *Logger) Successf(format string, args ...interface{}) {
	l.Success(fmt.Sprintf(format, args...))
}
