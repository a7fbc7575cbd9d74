// Package report renders trained models for people and for later analysis.
package report

import (
	"fmt"
	"io"
	"strings"
	"text/tabwriter"

	"github.com/tomoris/BHMM/bayspos"
)

func writeClasses(tw *tabwriter.Writer, classes []bayspos.ClassDistribution) {
	for _, class := range classes {
		fmt.Fprintf(tw, "%v %v\tcount %v\t\n", class.Kind, class.ID, class.Count)
		for rank, wp := range class.Words {
			fmt.Fprintf(tw, "\t%v\t%v\t%.6f\t\n", rank+1, wp.Word, wp.Prob)
		}
	}
}

// WriteSummary writes the top words of every topic and state as aligned columns.
func WriteSummary(w io.Writer, summary *bayspos.Summary) error {
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintf(tw, "run %v\tmodel %v\titeration %v\ttemperature %v\t\n", summary.RunID, summary.Model, summary.Iteration, summary.Temperature)
	writeClasses(tw, summary.Topics)
	writeClasses(tw, summary.States)
	return tw.Flush()
}

// WriteCrossTab writes the state x gold tag table. Empty tag columns are skipped.
func WriteCrossTab(w io.Writer, crossTab *bayspos.CrossTab) error {
	used := make([]bool, len(crossTab.Tags))
	for _, row := range crossTab.Counts {
		for t, c := range row {
			if c > 0 {
				used[t] = true
			}
		}
	}
	tw := tabwriter.NewWriter(w, 0, 4, 1, ' ', tabwriter.AlignRight)
	header := []string{"state"}
	for t, tag := range crossTab.Tags {
		if used[t] {
			header = append(header, tag)
		}
	}
	fmt.Fprintln(tw, strings.Join(header, "\t")+"\t")
	for s, row := range crossTab.Counts {
		if s == 0 {
			continue
		}
		cells := []string{fmt.Sprint(s)}
		for t, c := range row {
			if used[t] {
				cells = append(cells, fmt.Sprint(c))
			}
		}
		fmt.Fprintln(tw, strings.Join(cells, "\t")+"\t")
	}
	return tw.Flush()
}
