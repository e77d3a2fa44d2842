package main

import (
	"cmp"
	"fmt"
	"io"
	"slices"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/questlines/engine/internal/models"
	"github.com/questlines/engine/internal/questline"
)

// Quest states shown by "show".
const (
	stateDone   = "done"
	stateReady  = "ready"
	stateLocked = "locked"
)

func questState(ql *models.Questline, q *models.Quest) string {
	switch {
	case q.Completed:
		return stateDone
	case questline.CanComplete(ql, q.ID):
		return stateReady
	default:
		return stateLocked
	}
}

func renderInfos(w io.Writer, infos []models.QuestlineInfo) error {
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tNAME\tPROGRESS\tUPDATED")
	for _, info := range infos {
		fmt.Fprintf(tw, "%s\t%s\t%d/%d\t%s\n",
			info.ID, info.Name, info.CompletedQuests, info.TotalQuests,
			info.Updated.UTC().Format(time.RFC3339))
	}
	return tw.Flush()
}

func renderQuestline(w io.Writer, ql *models.Questline) error {
	done := 0
	for i := range ql.Quests {
		if ql.Quests[i].Completed {
			done++
		}
	}
	fmt.Fprintf(w, "%s (%s) %d/%d complete\n\n", ql.Name, ql.ID, done, len(ql.Quests))

	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	for i := range ql.Quests {
		q := &ql.Quests[i]
		fmt.Fprintf(tw, "%s\t%s\t%s\n", q.ID, questState(ql, q), q.Title)
		if pre := questline.PrerequisitesOf(ql, q); len(pre) > 0 {
			fmt.Fprintf(tw, "\t\tafter: %s\n", strings.Join(pre, ", "))
		}
		objs := slices.SortedStableFunc(slices.Values(q.Objectives), func(a, b models.Objective) int {
			return cmp.Compare(a.SortIndex, b.SortIndex)
		})
		for _, o := range objs {
			mark := " "
			if o.Completed {
				mark = "x"
			}
			fmt.Fprintf(tw, "\t\t[%s] %s (%s)\n", mark, o.Text, o.ID)
		}
	}
	return tw.Flush()
}

// placeholderPosition lays chained quests out left to right.
func placeholderPosition(i int) models.Position {
	p := questline.DefaultPosition
	p.X += float64(i) * 250
	return p
}
