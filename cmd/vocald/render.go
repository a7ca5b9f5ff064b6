package main

import (
	"fmt"
	"io"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/poiesic/vocald/core"
	"github.com/poiesic/vocald/ingestion"
)

var (
	colorRed    = lipgloss.Color("#FF5F5F")
	colorGreen  = lipgloss.Color("#5FD75F")
	colorYellow = lipgloss.Color("#FFD75F")
	colorCyan   = lipgloss.Color("#5FD7FF")
	colorGray   = lipgloss.Color("#808080")
)

var (
	titleStyle   = lipgloss.NewStyle().Bold(true).Foreground(colorCyan)
	okStyle      = lipgloss.NewStyle().Foreground(colorGreen)
	warnStyle    = lipgloss.NewStyle().Foreground(colorYellow)
	errorStyle   = lipgloss.NewStyle().Foreground(colorRed).Bold(true)
	dimStyle     = lipgloss.NewStyle().Foreground(colorGray)
	speakerStyle = lipgloss.NewStyle().Bold(true)
)

const dateLayout = "2006-01-02 15:04"

func statusText(s core.Status) string {
	switch s {
	case core.StatusDone:
		return okStyle.Render(s.String())
	case core.StatusFailed:
		return errorStyle.Render(s.String())
	default:
		return warnStyle.Render(s.String())
	}
}

func phoneText(number string) string {
	if number == "" {
		return dimStyle.Render("unknown")
	}
	return number
}

func formatDuration(d time.Duration) string {
	if d <= 0 {
		return "-"
	}
	return d.Round(time.Second).String()
}

func printRecordings(w io.Writer, recordings []*core.Recording) {
	if len(recordings) == 0 {
		fmt.Fprintln(w, dimStyle.Render("No recordings."))
		return
	}
	for _, r := range recordings {
		fmt.Fprintf(w, "%5d  %s  %-16s  %-8s  %d speaker(s)  %s\n",
			r.Id,
			r.CallDate.Local().Format(dateLayout),
			phoneText(r.PhoneNumber),
			statusText(r.Status),
			r.TotalSpeakers,
			r.Filename)
	}
}

func printDetail(w io.Writer, d *core.RecordingDetail) {
	r := d.Recording
	fmt.Fprintln(w, titleStyle.Render(r.Filename))
	fmt.Fprintf(w, "  ID:        %d\n", r.Id)
	fmt.Fprintf(w, "  Path:      %s\n", r.Filepath)
	fmt.Fprintf(w, "  Call date: %s\n", r.CallDate.Local().Format(dateLayout))
	fmt.Fprintf(w, "  Phone:     %s\n", phoneText(r.PhoneNumber))
	fmt.Fprintf(w, "  Duration:  %s\n", formatDuration(r.CallDuration))
	fmt.Fprintf(w, "  Status:    %s\n", statusText(r.Status))
	if r.Error != "" {
		fmt.Fprintf(w, "  Error:     %s\n", errorStyle.Render(r.Error))
	}
	if len(d.Speakers) == 0 {
		fmt.Fprintln(w, dimStyle.Render("  No speakers detected."))
		return
	}
	fmt.Fprintln(w, "  Speakers:")
	for _, s := range d.Speakers {
		fmt.Fprintf(w, "    [%d] %s  %.0f%%\n", s.SpeakerIndex, speakerStyle.Render(s.Name), s.Confidence)
	}
}

func printProfiles(w io.Writer, profiles []*core.VoiceProfile) {
	if len(profiles) == 0 {
		fmt.Fprintln(w, dimStyle.Render("No voices known yet."))
		return
	}
	for _, p := range profiles {
		fmt.Fprintf(w, "%5d  %s  %d recording(s)  last heard %s\n",
			p.Id,
			speakerStyle.Render(p.Name),
			p.TotalRecordings,
			p.LastSeen.Local().Format(dateLayout))
	}
}

func printStats(w io.Writer, s *core.DBStats) {
	fmt.Fprintln(w, titleStyle.Render("Database"))
	fmt.Fprintf(w, "  Recordings:      %d (%s done, %s pending, %s failed)\n",
		s.Recordings,
		okStyle.Render(fmt.Sprint(s.Done)),
		warnStyle.Render(fmt.Sprint(s.Pending)),
		errorStyle.Render(fmt.Sprint(s.Failed)))
	fmt.Fprintf(w, "  Speakers:        %d\n", s.Speakers)
	fmt.Fprintf(w, "  Known voices:    %d\n", s.VoiceProfiles)
	fmt.Fprintf(w, "  Processed files: %d\n", s.ProcessedFiles)
}

func printSummary(w io.Writer, s ingestion.Summary) {
	if s.Total == 0 {
		return
	}
	line := fmt.Sprintf("Analysed %d of %d recording(s): %d done, %d failed, %d skipped in %s",
		s.Processed(), s.Total, s.Succeeded, s.Failed, s.Skipped, s.Elapsed().Round(time.Millisecond))
	switch {
	case s.Cancelled:
		fmt.Fprintln(w, warnStyle.Render(line+" (cancelled)"))
	case s.Failed > 0:
		fmt.Fprintln(w, warnStyle.Render(line))
	default:
		fmt.Fprintln(w, okStyle.Render(line))
	}
}
