package main

import (
	"fmt"
	"io"
	"strconv"
	"time"

	"github.com/fatih/color"
	"github.com/olekukonko/tablewriter"

	"github.com/markdave123-py/integraldb/internal/models"
)

var (
	green  = color.New(color.FgGreen).SprintFunc()
	red    = color.New(color.FgRed).SprintFunc()
	yellow = color.New(color.FgYellow).SprintFunc()
	faint  = color.New(color.Faint).SprintFunc()
)

func colorState(s models.SourceState) string {
	switch s {
	case models.StateDone:
		return green(string(s))
	case models.StateFailed:
		return red(string(s))
	case models.StateUnreadable:
		return yellow(string(s))
	default:
		return faint(string(s))
	}
}

func printReport(w io.Writer, rep *models.RunReport, showAll bool) {
	fmt.Fprintf(w, "listed %d  done %s  skipped %d  unreadable %s  failed %s  chunks %d  embed calls %d  in %s\n",
		rep.Listed, green(rep.Done), rep.Skipped, yellow(rep.Unreadable), red(rep.Failed),
		rep.ChunksWritten, rep.EmbedCalls, rep.Duration().Round(time.Millisecond))
	for _, e := range rep.ListErrors {
		fmt.Fprintf(w, "%s %s\n", red("list error:"), e)
	}
	if rep.Canceled {
		fmt.Fprintln(w, yellow("pass canceled before every source was processed"))
	}

	var rows [][]string
	for _, o := range rep.Outcomes {
		if o.State == models.StateSkipped && !showAll {
			continue
		}
		chunks := strconv.Itoa(o.Chunks)
		if o.Dropped > 0 {
			chunks += fmt.Sprintf(" (-%d)", o.Dropped)
		}
		rows = append(rows, []string{string(o.Origin), o.DisplayName, o.Change, colorState(o.State), chunks, o.Error})
	}
	if len(rows) == 0 {
		return
	}

	table := tablewriter.NewWriter(w)
	table.SetHeader([]string{"Origin", "Document", "Change", "State", "Chunks", "Error"})
	table.SetAutoWrapText(false)
	table.AppendBulk(rows)
	table.Render()
}

func printSources(w io.Writer, sources []models.StoredSource) {
	if len(sources) == 0 {
		fmt.Fprintln(w, "no documents stored")
		return
	}
	table := tablewriter.NewWriter(w)
	table.SetHeader([]string{"Document", "Chunks", "Last ingested"})
	total := 0
	for _, s := range sources {
		total += s.Chunks
		table.Append([]string{s.SourceFilename, strconv.Itoa(s.Chunks), s.LastIngested.Local().Format(time.DateTime)})
	}
	table.SetFooter([]string{strconv.Itoa(len(sources)) + " documents", strconv.Itoa(total), ""})
	table.Render()
}
