// Package dedupe collapses workspaces that share a name.
//
// Names are compared after trimming and case folding. Within a group the
// workspace with the highest score survives, where the score is the number
// of sources, plus 100 when an analysis is present, plus the numeric value
// of the id (0 for ids that are not integers). Ties go to the later entry.
package dedupe

import (
	"strconv"
	"strings"

	"github.com/JaimeStill/licita/internal/workspace"
)

const analysisWeight = 100

// Normalize returns the grouping key for a workspace name.
func Normalize(name string) string {
	return strings.ToLower(strings.TrimSpace(name))
}

// Score ranks a workspace for survival within its name group.
func Score(w workspace.Workspace) int64 {
	score := int64(len(w.Sources))
	if w.Analysis != nil {
		score += analysisWeight
	}
	if n, err := strconv.ParseInt(strings.TrimSpace(w.ID), 10, 64); err == nil {
		score += n
	}
	return score
}

// Resolve returns one workspace per normalized name. Output order follows the
// first appearance of each name in list. Resolve is idempotent.
func Resolve(list []workspace.Workspace) []workspace.Workspace {
	order := make([]string, 0, len(list))
	best := make(map[string]int, len(list))

	for i, w := range list {
		key := Normalize(w.Name)
		j, seen := best[key]
		if !seen {
			order = append(order, key)
			best[key] = i
			continue
		}
		if Score(w) >= Score(list[j]) {
			best[key] = i
		}
	}

	out := make([]workspace.Workspace, 0, len(order))
	for _, key := range order {
		out = append(out, list[best[key]])
	}
	return out
}

// Losers returns the ids of the workspaces Resolve would drop from list.
func Losers(list []workspace.Workspace) []string {
	kept := make(map[string]struct{}, len(list))
	for _, w := range Resolve(list) {
		kept[w.ID] = struct{}{}
	}
	var ids []string
	for _, w := range list {
		if _, ok := kept[w.ID]; !ok {
			ids = append(ids, w.ID)
		}
	}
	return ids
}
