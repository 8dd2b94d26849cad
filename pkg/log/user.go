package log

import (
	"context"
	"fmt"
	"io"

	"github.com/pterm/pterm"
	"github.com/rs/zerolog"
	"github.com/walteh/bitablerc/pkg/table"
)

// 📢 UserLogger prints status lines and tables for people, and mirrors them to zerolog
type UserLogger struct {
	log zerolog.Logger // for debug/error logging
	out io.Writer
}

// 🎯 NewUserLogger creates a new user logger writing to out
func NewUserLogger(ctx context.Context, out io.Writer) *UserLogger {
	return &UserLogger{
		log: *zerolog.Ctx(ctx),
		out: out,
	}
}

func (u *UserLogger) printer(base pterm.PrefixPrinter, prefix string) *pterm.PrefixPrinter {
	return base.WithPrefix(pterm.Prefix{Text: prefix, Style: base.Prefix.Style}).WithWriter(u.out)
}

// 🩺 LogPing reports the result of a connectivity check
func (u *UserLogger) LogPing(target string, err error) {
	if err == nil {
		u.printer(pterm.Success, "✅").Printfln("connected to %s", target)
		u.log.Info().Str("target", target).Msg("ping ok")
		return
	}
	u.printer(pterm.Error, "❌").Printfln("cannot reach %s", target)
	u.printer(pterm.Error, "ERROR").Println(err)
	u.log.Error().Err(err).Str("target", target).Msg("ping failed")
}

// 📂 LogFields prints the searchable fields of a table
func (u *UserLogger) LogFields(tableID string, fields []table.Field) error {
	if len(fields) == 0 {
		u.printer(pterm.Warning, "⚠️").Printfln("%s has no text fields", tableID)
		u.log.Warn().Str("table_id", tableID).Msg("no text fields")
		return nil
	}

	u.printer(pterm.Info, "📂").Printfln("found %d text fields in %s", len(fields), tableID)

	data := pterm.TableData{{"ID", "Name", "Kind"}}
	for _, f := range fields {
		data = append(data, []string{f.ID, f.Name, f.Kind.String()})
	}
	return u.render(data)
}

// 📊 LogFailures prints one row per record that could not be written
func (u *UserLogger) LogFailures(tableID string, failures []table.Failure) error {
	if len(failures) == 0 {
		return nil
	}

	u.printer(pterm.Error, "❌").Printfln("%d records in %s were not updated", len(failures), tableID)

	data := pterm.TableData{{"Record", "Reason"}}
	for _, f := range failures {
		data = append(data, []string{f.RecordID, f.Reason})
		u.log.Debug().Str("table_id", tableID).Str("record_id", f.RecordID).Str("reason", f.Reason).Msg("record failed")
	}
	return u.render(data)
}

// 📦 LogState prints a run state change
func (u *UserLogger) LogState(tableID string, state fmt.Stringer) {
	u.printer(pterm.Debug, "📦").Printfln("%s: %s", tableID, state)
	u.log.Debug().Str("table_id", tableID).Stringer("state", state).Msg("state")
}

func (u *UserLogger) render(data pterm.TableData) error {
	s, err := pterm.DefaultTable.WithHasHeader().WithData(data).Srender()
	if err != nil {
		return err
	}
	_, err = fmt.Fprintln(u.out, s)
	return err
}
