package report

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/muesli/termenv"
)

type styles struct {
	title   lipgloss.Style
	name    lipgloss.Style
	bullet  lipgloss.Style
	warning lipgloss.Style
	faint   lipgloss.Style
}

// Renderer prints reports for humans. Colours follow the output: none when it
// is not a terminal or when colour is disabled.
type Renderer struct {
	w       io.Writer
	verbose bool
	st      styles
}

// NewRenderer returns a Renderer writing to w. Verbose also lists every file
// of each entry.
func NewRenderer(w io.Writer, verbose, noColor bool) *Renderer {
	lr := lipgloss.NewRenderer(w)
	if noColor {
		lr.SetColorProfile(termenv.Ascii)
	}
	return &Renderer{
		w:       w,
		verbose: verbose,
		st: styles{
			title:   lr.NewStyle().Foreground(lipgloss.Color("15")).Bold(true),
			name:    lr.NewStyle().Foreground(lipgloss.Color("12")).Bold(true),
			bullet:  lr.NewStyle().Foreground(lipgloss.Color("15")),
			warning: lr.NewStyle().Foreground(lipgloss.Color("3")),
			faint:   lr.NewStyle().Faint(true),
		},
	}
}

// Render writes the grouped report. Empty groups produce no section.
func (r *Renderer) Render(rep Report) error {
	var b strings.Builder

	if rep.Empty() {
		fmt.Fprintln(&b, r.st.title.Render("Nothing is running outdated code."))
		return r.flush(&b)
	}

	if rep.Kernel != "" {
		fmt.Fprintln(&b, r.st.title.Render("The running kernel may be outdated:"))
		r.item(&b, rep.Kernel, "reboot required")
		fmt.Fprintln(&b)
	}

	if len(rep.Services) > 0 {
		r.heading(&b, "services", "")
		for _, e := range rep.Services {
			r.entry(&b, fmt.Sprintf("%s (%s)", e.Unit, e.Command), e)
		}
		fmt.Fprintln(&b)
	}

	for _, g := range rep.UserUnits {
		r.heading(&b, "units for user", g.User)
		for _, e := range g.Entries {
			r.entry(&b, fmt.Sprintf("%s (%s)", e.Unit, e.Command), e)
		}
		fmt.Fprintln(&b)
	}

	for _, g := range rep.Others {
		r.heading(&b, "processes for user", g.User)
		for _, e := range g.Entries {
			r.entry(&b, e.Command, e)
		}
		fmt.Fprintln(&b)
	}

	return r.flush(&b)
}

func (r *Renderer) heading(b *strings.Builder, desc, user string) {
	line := r.st.title.Render("The following " + desc)
	if user != "" {
		line += " " + r.st.name.Render(user)
	}
	fmt.Fprintln(b, line+" "+r.st.title.Render("may be running outdated code:"))
}

func (r *Renderer) entry(b *strings.Builder, name string, e Entry) {
	r.item(b, name+" "+formatPIDs(e.PIDs), e.Reason)
	if !r.verbose {
		return
	}
	for _, f := range e.Files {
		fmt.Fprintf(b, "    %s\n", r.st.faint.Render(f))
	}
}

func (r *Renderer) item(b *strings.Builder, name, warning string) {
	line := r.st.bullet.Render("•") + " " + name
	if warning != "" {
		line += " " + r.st.warning.Render("("+warning+")")
	}
	fmt.Fprintln(b, line)
}

func formatPIDs(pids []string) string {
	if len(pids) == 1 {
		return "[pid " + pids[0] + "]"
	}
	return "[pids " + strings.Join(pids, ", ") + "]"
}

// RenderFiles writes the result of a pattern lookup.
func (r *Renderer) RenderFiles(pattern string, files []string) error {
	var b strings.Builder
	if len(files) == 0 {
		fmt.Fprintln(&b, r.st.name.Render(pattern)+" "+r.st.title.Render("appears to be running updated binaries."))
		return r.flush(&b)
	}
	fmt.Fprintln(&b, r.st.name.Render(pattern)+" "+r.st.title.Render("is using the following outdated binaries:"))
	for _, f := range files {
		r.item(&b, f, "")
	}
	return r.flush(&b)
}

// RenderNoMatch writes the message for a pattern that matched no process.
func (r *Renderer) RenderNoMatch(pattern string) error {
	var b strings.Builder
	fmt.Fprintln(&b, r.st.title.Render("No process matched")+" "+r.st.name.Render(pattern)+r.st.title.Render("."))
	return r.flush(&b)
}

// RenderCommand echoes a service manager command before it runs.
func (r *Renderer) RenderCommand(cmd string) error {
	var b strings.Builder
	fmt.Fprintln(&b, cmd)
	return r.flush(&b)
}

func (r *Renderer) flush(b *strings.Builder) error {
	_, err := io.WriteString(r.w, b.String())
	return err
}

// WriteJSON writes the report as indented JSON.
func WriteJSON(w io.Writer, rep Report) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(rep)
}
