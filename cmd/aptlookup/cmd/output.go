package cmd

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/corey/aptlookup/internal/adapters/socket"
	"github.com/corey/aptlookup/internal/domain/resolver"
	"github.com/corey/aptlookup/internal/domain/status"
	"github.com/corey/aptlookup/internal/ports"
)

// ANSI color codes for terminal output.
const (
	colorReset  = "\033[0m"
	colorBold   = "\033[1m"
	colorCyan   = "\033[36m"
	colorGreen  = "\033[32m"
	colorYellow = "\033[33m"
	colorGray   = "\033[90m"
)

// colorEnabled is false when stdout is piped.
var colorEnabled = isStdoutTTY()

// isStdoutTTY returns true if stdout is connected to a terminal.
func isStdoutTTY() bool {
	fi, err := os.Stdout.Stat()
	if err != nil {
		return false
	}
	return fi.Mode()&os.ModeCharDevice != 0
}

func paint(color, s string) string {
	if !colorEnabled {
		return s
	}
	return color + s + colorReset
}

// formatOutcome formats a resolution for terminal display.
//
//	⚡ Tower A  (Gangnam / Yeoksam)
//	  built 2001
//	  aliases: TA, 101-150
func formatOutcome(query string, out resolver.Outcome) string {
	switch out.Kind {
	case resolver.Hit:
		var sb strings.Builder
		sb.WriteString(formatRecord(out.Record))
		if out.Fuzzy {
			sb.WriteString(paint(colorGray, fmt.Sprintf("  (closest match for %q)\n", query)))
		}
		return sb.String()
	case resolver.Candidates:
		var sb strings.Builder
		sb.WriteString(fmt.Sprintf("%s %q matches %d buildings, be more specific:\n",
			paint(colorBold, "⚡"), query, len(out.Candidates)))
		for _, name := range out.Candidates {
			sb.WriteString(fmt.Sprintf("  %s\n", paint(colorCyan, name)))
		}
		return sb.String()
	case resolver.NotReady:
		return paint(colorYellow, "⚡ data not loaded yet") + ". Try: aptlookup reload\n"
	default:
		return fmt.Sprintf("⚡ no building matches %q\n", query)
	}
}

// formatRecord formats one building.
func formatRecord(r *ports.Record) string {
	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("%s %s", paint(colorBold, "⚡"), paint(colorCyan, r.BuildingName)))
	if r.District != "" || r.SubDistrict != "" {
		sb.WriteString(paint(colorGray, fmt.Sprintf("  (%s / %s)", r.District, r.SubDistrict)))
	}
	sb.WriteString("\n")
	if r.Info != "" {
		for _, line := range strings.Split(strings.TrimRight(r.Info, "\n"), "\n") {
			sb.WriteString("  " + line + "\n")
		}
	}
	if r.AliasSpec != "" {
		sb.WriteString(paint(colorGray, "  aliases: "+r.AliasSpec) + "\n")
	}
	return sb.String()
}

// formatList formats a drill-down level.
func formatList(title string, items []string) string {
	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("%s %d\n", paint(colorBold, "⚡ "+title), len(items)))
	for _, it := range items {
		sb.WriteString("  " + it + "\n")
	}
	return sb.String()
}

// formatStatus formats loader status.
func formatStatus(st *status.StatusData) string {
	var sb strings.Builder
	state := string(st.State)
	switch st.State {
	case status.Loaded:
		state = paint(colorGreen, state)
	case status.Failed:
		state = paint(colorYellow, state)
	}
	sb.WriteString(fmt.Sprintf("%s\n", paint(colorBold, "⚡ aptlookup status")))
	sb.WriteString(fmt.Sprintf("  State:       %s\n", state))
	sb.WriteString(fmt.Sprintf("  Source:      %s\n", st.Source))
	if st.Ready {
		sb.WriteString(fmt.Sprintf("  Generation:  %d\n", st.Generation))
		sb.WriteString(fmt.Sprintf("  Records:     %d\n", st.Records))
		sb.WriteString(fmt.Sprintf("  Keys:        %d\n", st.Keys))
		sb.WriteString(fmt.Sprintf("  Unit ranges: %d\n", st.Units))
		sb.WriteString(fmt.Sprintf("  Collisions:  %d\n", st.Collisions))
		if !st.LoadedAt.IsZero() {
			sb.WriteString(fmt.Sprintf("  Loaded:      %s\n", st.LoadedAt.Local().Format(time.DateTime)))
		}
	}
	if st.LastError != "" {
		retry := ""
		if st.Retryable {
			retry = " (retryable)"
		}
		sb.WriteString(fmt.Sprintf("  Last error:  %s%s\n", paint(colorYellow, st.LastError), retry))
	}
	return sb.String()
}

// formatSummary formats the result of a reload.
func formatSummary(s *status.LoadSummary) string {
	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("%s %s\n", paint(colorBold, "⚡"), s.Summary()))
	for _, c := range s.Collisions {
		sb.WriteString(paint(colorYellow, fmt.Sprintf("  key %q now resolves to %q (was %q)", c.Key, c.Winner, c.Previous)) + "\n")
	}
	return sb.String()
}

// formatHealth formats a HealthResult.
func formatHealth(h *socket.HealthResult) string {
	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("%s\n", paint(colorBold, "⚡ aptlookup daemon")))
	sb.WriteString(fmt.Sprintf("  Status:     %s\n", paint(colorGreen, h.Status)))
	sb.WriteString(fmt.Sprintf("  Ready:      %t\n", h.Ready))
	sb.WriteString(fmt.Sprintf("  Generation: %d\n", h.Generation))
	sb.WriteString(fmt.Sprintf("  Records:    %d\n", h.Records))
	sb.WriteString(fmt.Sprintf("  Uptime:     %s\n", h.Uptime))
	return sb.String()
}
