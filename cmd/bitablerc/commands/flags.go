package commands

import (
	"github.com/spf13/cobra"
	"github.com/walteh/bitablerc/cmd/bitablerc/opts"
	"github.com/walteh/bitablerc/pkg/replace"
)

// replaceFlags are shared by preview and apply
type replaceFlags struct {
	tables  []string
	find    string
	replace string
	regex   bool
}

func (f *replaceFlags) add(cmd *cobra.Command) {
	cmd.Flags().StringSliceVarP(&f.tables, "table", "t", nil, "table id, may be repeated")
	cmd.Flags().StringVarP(&f.find, "find", "f", "", "text to search for")
	cmd.Flags().StringVarP(&f.replace, "replace", "r", "", "replacement text, empty deletes every match")
	cmd.Flags().BoolVar(&f.regex, "regex", false, "treat --find as a regular expression ($1 expands groups)")
	_ = cmd.MarkFlagRequired("table")
	_ = cmd.MarkFlagRequired("find")
}

func (f *replaceFlags) request(o *opts.RootOpts, tableID string) replace.Request {
	return replace.Request{
		TableID:     tableID,
		Pattern:     f.find,
		Replacement: f.replace,
		Regex:       f.regex || o.Config.Regex,
	}
}
