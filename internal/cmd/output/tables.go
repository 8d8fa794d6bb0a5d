package output

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/agentstation/utc"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"github.com/agentstation/tasklink"
	"github.com/agentstation/tasklink/pkg/records"
)

const nameWidth = 40

// titled is built per call since a Caser keeps state between calls.
func titled(s string) string {
	return cases.Title(language.English).String(s)
}

// Pairs lays out linked pairs.
func Pairs(pairs []*records.LinkedPair) TableFunc {
	return func(wide bool) Data {
		d := Data{Headers: []string{"ID", "Source", "Target", "Method", "Confidence"}}
		if wide {
			d.Headers = append(d.Headers, "Created", "Synced")
		}
		for _, p := range pairs {
			row := []string{
				p.ID,
				recordCell(p.SourceID, p.SourceName),
				recordCell(p.TargetID, p.TargetName),
				titled(string(p.Method)),
				confidence(p.Confidence),
			}
			if wide {
				row = append(row, stamp(&p.CreatedAt), stamp(p.SyncedAt))
			}
			d.Rows = append(d.Rows, row)
		}
		d.ColumnAlignment = columns(len(d.Headers), 4)
		return d
	}
}

// Suggestions lays out the candidates for one source record.
func Suggestions(s *tasklink.Suggestions) TableFunc {
	return func(wide bool) Data {
		d := Data{Headers: []string{"Target", "Confidence", "Method", "Reason"}}
		for _, c := range s.Candidates {
			d.Rows = append(d.Rows, []string{
				recordCell(c.TargetID, c.TargetName),
				confidence(c.Confidence),
				titled(string(c.Method)),
				c.Reason,
			})
		}
		d.Rows = append(d.Rows, errorRows(s.Errors, len(d.Headers))...)
		d.ColumnAlignment = columns(len(d.Headers), 1)
		return d
	}
}

// AutoMatch lays out bulk suggestions and, when applied, their outcome.
func AutoMatch(r *tasklink.AutoMatchResult) TableFunc {
	return func(wide bool) Data {
		d := Data{Headers: []string{"Source", "Target", "Confidence", "Method"}}
		if wide {
			d.Headers = append(d.Headers, "Reason")
		}
		for _, m := range r.Suggestions {
			row := []string{
				recordCell(m.SourceID, m.SourceName),
				recordCell(m.Candidate.TargetID, m.Candidate.TargetName),
				confidence(m.Candidate.Confidence),
				titled(string(m.Candidate.Method)),
			}
			if wide {
				row = append(row, m.Candidate.Reason)
			}
			d.Rows = append(d.Rows, row)
		}
		if r.Applied != nil {
			for _, c := range r.Applied.Conflicts {
				d.Rows = append(d.Rows, pad([]string{c.SourceID, c.TargetID, "conflict", c.Reason}, len(d.Headers)))
			}
		}
		d.Rows = append(d.Rows, errorRows(r.Errors, len(d.Headers))...)
		d.ColumnAlignment = columns(len(d.Headers), 2)
		return d
	}
}

// Bulk lays out the result of a bulk accept or import.
func Bulk(r *tasklink.BulkResult) TableFunc {
	return func(wide bool) Data {
		d := Pairs(r.Linked)(wide)
		d.Headers = append(d.Headers, "Status")
		for i := range d.Rows {
			d.Rows[i] = append(d.Rows[i], "linked")
		}
		for _, c := range r.Conflicts {
			row := pad([]string{"", c.SourceID, c.TargetID}, len(d.Headers)-1)
			d.Rows = append(d.Rows, append(row, "conflict: "+c.Reason))
		}
		d.ColumnAlignment = append(d.ColumnAlignment, AlignLeft)
		return d
	}
}

// Report lays out a detection pass, one row per pair outcome followed by
// the individual changes.
func Report(r *tasklink.Report) TableFunc {
	return func(wide bool) Data {
		d := Data{Headers: []string{"Pair", "Source", "Target", "Outcome"}}
		add := func(refs []records.PairRef, outcome string) {
			for _, ref := range refs {
				d.Rows = append(d.Rows, []string{
					ref.PairID,
					recordCell(ref.SourceID, ref.SourceName),
					recordCell(ref.TargetID, ref.TargetName),
					outcome,
				})
			}
		}
		add(r.Drifted, "drifted")
		add(r.Missing, "missing")
		add(r.New, "new")
		if wide {
			add(r.InSync, "in sync")
		}
		for _, c := range r.Changes {
			d.Rows = append(d.Rows, []string{c.PairID, "", "", changeText(c)})
		}
		d.Rows = append(d.Rows, errorRows(r.Errors, len(d.Headers))...)
		return d
	}
}

// Snapshots lays out the result of snapshotting every pair.
func Snapshots(r *tasklink.SnapshotResult) TableFunc {
	return func(bool) Data {
		d := Data{Headers: []string{"Pair", "Source", "Target", "Outcome"}}
		for _, ref := range r.Snapshotted {
			d.Rows = append(d.Rows, refRow(ref, "snapshotted"))
		}
		for _, ref := range r.Missing {
			d.Rows = append(d.Rows, refRow(ref, "missing"))
		}
		d.Rows = append(d.Rows, errorRows(r.Errors, len(d.Headers))...)
		return d
	}
}

// Snapshot lays out one snapshot side by side.
func Snapshot(s *records.Snapshot) TableFunc {
	return func(bool) Data {
		d := Data{Headers: []string{"Field", "A", "B"}}
		a, b := s.Side(records.SideA), s.Side(records.SideB)
		d.Rows = [][]string{
			{"Name", truncate(a.Name, nameWidth), truncate(b.Name, nameWidth)},
			{"Description", truncate(a.Description, nameWidth), truncate(b.Description, nameWidth)},
			{"State", a.State, b.State},
			{"Completed", strconv.FormatBool(a.Completed), strconv.FormatBool(b.Completed)},
			{"Comments", count(a.Comments), count(b.Comments)},
			{"Modified", stamp(a.ModifiedAt), stamp(b.ModifiedAt)},
		}
		return d
	}
}

// Changes lays out change log records.
func Changes(changes []records.ChangeRecord) TableFunc {
	return func(wide bool) Data {
		d := Data{Headers: []string{"Detected", "Pair", "Side", "Field", "Old", "New"}}
		if wide {
			d.Headers = append(d.Headers, "Edited")
		}
		for _, c := range changes {
			row := []string{
				stamp(&c.DetectedAt),
				c.PairID,
				strings.ToUpper(string(c.Side)),
				titled(c.Field),
				truncate(c.OldValue, nameWidth),
				truncate(c.NewValue, nameWidth),
			}
			if wide {
				row = append(row, stamp(c.EditedAt))
			}
			d.Rows = append(d.Rows, row)
		}
		return d
	}
}

func refRow(ref records.PairRef, outcome string) []string {
	return []string{
		ref.PairID,
		recordCell(ref.SourceID, ref.SourceName),
		recordCell(ref.TargetID, ref.TargetName),
		outcome,
	}
}

func changeText(c records.ChangeRecord) string {
	return fmt.Sprintf("%s.%s: %q -> %q", c.Side, c.Field,
		truncate(c.OldValue, nameWidth), truncate(c.NewValue, nameWidth))
}

func errorRows(errs []records.ErrorEntry, width int) [][]string {
	rows := make([][]string, 0, len(errs))
	for _, e := range errs {
		msg := fmt.Sprintf("error: %s %s", e.Operation, e.Message)
		rows = append(rows, pad([]string{e.System, e.RecordID, msg}, width))
	}
	return rows
}

func pad(row []string, width int) []string {
	for len(row) < width {
		row = append(row, "")
	}
	return row[:width]
}

// columns left-aligns every column except right, which is right-aligned.
func columns(n, right int) []Align {
	out := make([]Align, n)
	for i := range out {
		out[i] = AlignLeft
	}
	if right >= 0 && right < n {
		out[right] = AlignRight
	}
	return out
}

func recordCell(id, name string) string {
	switch {
	case id == "":
		return "-"
	case name == "":
		return id
	}
	return fmt.Sprintf("%s (%s)", truncate(name, nameWidth), id)
}

func confidence(c float64) string {
	return strconv.FormatFloat(c, 'f', 2, 64)
}

func count(n *int) string {
	if n == nil {
		return "-"
	}
	return strconv.Itoa(*n)
}

func stamp(t *utc.Time) string {
	if t == nil || t.Time.IsZero() {
		return "-"
	}
	return t.Time.Format(time.RFC3339)
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n-3]) + "..."
}
