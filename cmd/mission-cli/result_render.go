package main

import (
	"encoding/json"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/cuongbtq/mission-control/internal/control/domain"
)

// renderResult prints the campaign, the clip table and the per-platform posts.
func renderResult(w io.Writer, r *domain.Result) {
	if r == nil {
		return
	}

	lines := renderSectionHeader("Campaign")
	if r.Analysis.MainTopic != "" {
		lines = append(lines, "Topic:    "+r.Analysis.MainTopic)
	}
	if len(r.Analysis.SuggestedTitles) > 0 {
		lines = append(lines, "Titles:   "+strings.Join(r.Analysis.SuggestedTitles, " | "))
	}
	if r.Campaign.OverallStrategy != "" {
		lines = append(lines, "Strategy: "+r.Campaign.OverallStrategy)
	}
	for _, line := range lines {
		fmt.Fprintln(w, line)
	}
	fmt.Fprintln(w)

	if len(r.Videos) == 0 {
		fmt.Fprintln(w, "No clips were produced.")
		return
	}

	rows := make([][]string, 0, len(r.Videos))
	for i, v := range r.Videos {
		score := "-"
		if s, ok := r.ScoreFor(i); ok {
			score = strconv.Itoa(s)
		}
		window := "-"
		if i < len(r.Analysis.Clips) {
			c := r.Analysis.Clips[i]
			window = c.Start + "-" + c.End
		}
		rows = append(rows, []string{
			strconv.Itoa(i + 1),
			score,
			window,
			v.Hook,
			strings.Join(platforms(r.PostsFor(i+1)), ", "),
			v.URL,
		})
	}
	fmt.Fprintln(w, renderTable(
		[]string{"#", "Score", "Window", "Hook", "Platforms", "Video"},
		rows,
		[]columnAlignment{alignRight, alignRight, alignLeft, alignLeft, alignLeft, alignLeft},
	))

	for i := range r.Videos {
		posts := r.PostsFor(i + 1)
		if len(posts) == 0 {
			continue
		}
		fmt.Fprintln(w)
		fmt.Fprintf(w, "Clip %d\n", i+1)
		for _, p := range posts {
			fmt.Fprintf(w, "  [%s] %s\n", p.Platform, p.Content)
			if len(p.Hashtags) > 0 {
				fmt.Fprintf(w, "  %s\n", hashtags(p.Hashtags))
			}
		}
	}
}

func platforms(posts []domain.PlatformPost) []string {
	names := make([]string, 0, len(posts))
	for _, p := range posts {
		names = append(names, p.Platform)
	}
	return names
}

func hashtags(tags []string) string {
	out := make([]string, 0, len(tags))
	for _, t := range tags {
		t = strings.TrimSpace(t)
		if t == "" {
			continue
		}
		if !strings.HasPrefix(t, "#") {
			t = "#" + t
		}
		out = append(out, t)
	}
	return strings.Join(out, " ")
}

// writeJSON encodes v as indented JSON to the command's stdout.
func writeJSON(cmd *cobra.Command, v any) error {
	enc := json.NewEncoder(cmd.OutOrStdout())
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
