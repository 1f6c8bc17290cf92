package commands

import (
	"context"
	"fmt"
	"io"
	"medicover-assist/lib/scrapers/medicover"
	"medicover-assist/lib/textutil"
	"sort"
	"strings"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"
)

const narrowDown = "Narrow down to see more options!"

var (
	choicesSearch *string
	choicesLimit  *int
)

func init() {
	choicesSearch = choicesCmd.Flags().String("search", "", "Rank the options of every dimension by similarity to a name.")
	choicesLimit = choicesCmd.Flags().Int("limit", 5, "How many options to show per dimension with --search.")
	rootCmd.AddCommand(choicesCmd)
}

var choicesCmd = &cobra.Command{
	Use:   "choices [--search <name>]",
	Short: "Prints the options available for each filter dimension given the configured filter.",
	RunE: func(cmd *cobra.Command, args []string) error {
		s, err := setup(cmd.Context())
		if err != nil {
			return err
		}
		defer s.close()

		out := cmd.OutOrStdout()
		return s.loggedIn(cmd.Context(), func(ctx context.Context) error {
			choices, err := s.client.VisitParameters(ctx, s.config.Filter())
			if err != nil {
				return err
			}
			if *choicesSearch != "" {
				renderSearch(out, choices, *choicesSearch, *choicesLimit)
				return nil
			}
			renderChoices(out, choices)
			return nil
		})
	},
}

func envName(dimension string) string {
	return "MEDICOVER_" + strings.ToUpper(dimension)
}

type option struct {
	label string
	id    int
}

// visibleOptions lists the options of a dimension sorted by label. The
// "any" entries (negative ids) are hidden for required dimensions since
// they cannot be used there.
func visibleOptions(d medicover.Dimension) []option {
	options := []option{}
	for id, text := range d.Choices {
		if d.Required && id < 0 {
			continue
		}
		options = append(options, option{label: textutil.Transliterate(text), id: id})
	}
	sort.Slice(options, func(i, j int) bool {
		if options[i].label == options[j].label {
			return options[i].id < options[j].id
		}
		return options[i].label < options[j].label
	})
	return options
}

func renderChoices(out io.Writer, choices medicover.ChoiceSet) {
	for _, d := range choices.Dimensions() {
		t := table.NewWriter()
		t.SetOutputMirror(out)
		t.SetTitle(envName(d.Name))
		t.AppendHeader(table.Row{"Option", "Use code"})

		options := visibleOptions(d)
		for _, o := range options {
			t.AppendRow(table.Row{o.label, o.id})
		}
		if len(options) == 0 {
			t.AppendRow(table.Row{narrowDown, ""})
		}

		t.SetStyle(table.StyleRounded)
		t.Render()
		fmt.Fprintln(out)
	}
}

func renderSearch(out io.Writer, choices medicover.ChoiceSet, query string, limit int) {
	for _, d := range choices.Dimensions() {
		t := table.NewWriter()
		t.SetOutputMirror(out)
		t.SetTitle(envName(d.Name))
		t.AppendHeader(table.Row{"Option", "Use code", "Similarity"})

		matches := textutil.RankByName(query, d.Choices)
		shown := 0
		for _, m := range matches {
			if d.Required && m.Key < 0 {
				continue
			}
			if limit > 0 && shown >= limit {
				break
			}
			t.AppendRow(table.Row{textutil.Transliterate(m.Text), m.Key, fmt.Sprintf("%.2f", m.Similarity)})
			shown++
		}
		if shown == 0 {
			t.AppendRow(table.Row{narrowDown, "", ""})
		}

		t.SetStyle(table.StyleRounded)
		t.Render()
		fmt.Fprintln(out)
	}
}
