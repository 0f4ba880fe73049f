package display

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/hammamikhairi/mise/internal/domain"
	"github.com/hammamikhairi/mise/internal/layout"
)

var (
	headingStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#e4e4e7")).
			Bold(true)

	rankStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#71717a")).
			Width(8)

	boxStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color("#52525b")).
			Padding(0, 1).
			MarginRight(1).
			Width(28)

	doneBoxStyle = boxStyle.
			BorderForeground(lipgloss.Color("#4ade80")).
			Foreground(lipgloss.Color("#71717a"))

	readyBoxStyle = boxStyle.
			BorderForeground(lipgloss.Color("#fde68a"))

	criticalStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#fca5a5"))
)

// RenderRecipeList formats recipe summaries as an aligned list.
func RenderRecipeList(recipes []domain.RecipeSummary) string {
	if len(recipes) == 0 {
		return secondaryStyle.Render("  No recipes found.") + "\n"
	}
	idWidth := 0
	for _, r := range recipes {
		idWidth = max(idWidth, len(r.ID))
	}
	idCol := lipgloss.NewStyle().Width(idWidth + 2).Foreground(lipgloss.Color("#94a3b8"))

	var b strings.Builder
	for _, r := range recipes {
		line := "  " + idCol.Render(r.ID) + headingStyle.Render(r.Title) +
			secondaryStyle.Render(fmt.Sprintf("  (%d steps)", r.StepCount))
		b.WriteString(line)
		b.WriteByte('\n')
		if r.Description != "" {
			b.WriteString("  " + idCol.Render("") + secondaryStyle.Render(r.Description))
			b.WriteByte('\n')
		}
	}
	return b.String()
}

// RenderTracks draws the layout one rank per row, steps that may run at
// the same time side by side. status may be nil; when set, completed and
// available steps are highlighted.
func RenderTracks(r *domain.Recipe, l layout.Layout, status map[string]domain.StepStatus, available []string) string {
	ready := make(map[string]bool, len(available))
	for _, id := range available {
		ready[id] = true
	}

	var rows []string
	for rank, ids := range l.Tracks() {
		boxes := make([]string, 0, len(ids)+1)
		boxes = append(boxes, rankStyle.Render(fmt.Sprintf("rank %d", rank)))
		for _, id := range ids {
			style := boxStyle
			switch {
			case status[id] == domain.StepCompleted:
				style = doneBoxStyle
			case ready[id]:
				style = readyBoxStyle
			}
			boxes = append(boxes, style.Render(stepCard(r, id)))
		}
		rows = append(rows, lipgloss.JoinHorizontal(lipgloss.Top, boxes...))
	}
	return lipgloss.JoinVertical(lipgloss.Left, rows...) + "\n"
}

func stepCard(r *domain.Recipe, id string) string {
	s := r.Step(id)
	if s == nil {
		return id
	}
	head := r.Label(id)
	if s.DurationMinutes > 0 {
		head += fmt.Sprintf(" (~%s)", fmtMinutes(s.DurationMinutes))
	}
	body := s.Text
	if meta := StepNotes(*s, true); meta != "" {
		body += "\n" + secondaryStyle.Render(meta)
	}
	if len(s.DependsOn) > 0 {
		labels := make([]string, 0, len(s.DependsOn))
		for _, d := range s.DependsOn {
			labels = append(labels, shortLabel(r, d))
		}
		body += "\n" + secondaryStyle.Render("after "+strings.Join(labels, ", "))
	}
	return stepStyle.Render(head) + "\n" + body
}

// RenderSummary prints the layout's width and the critical path estimate.
func RenderSummary(r *domain.Recipe, l layout.Layout, total float64, path []string) string {
	var b strings.Builder
	fmt.Fprintf(&b, "  %s %d ranks, up to %d steps at once\n",
		headingStyle.Render("Layout:"), l.Depth(), l.Width())
	if len(path) > 0 {
		labels := make([]string, 0, len(path))
		for _, id := range path {
			labels = append(labels, shortLabel(r, id))
		}
		fmt.Fprintf(&b, "  %s ~%s via %s\n",
			headingStyle.Render("Critical path:"),
			fmtMinutes(total),
			criticalStyle.Render(strings.Join(labels, " -> ")))
	}
	return b.String()
}

// RenderSession lists what can be done now, what is waiting and on what,
// and how far along the session is.
func RenderSession(r *domain.Recipe, snap domain.SessionSnapshot) string {
	var b strings.Builder
	fmt.Fprintf(&b, "  %s %d/%d steps done\n",
		headingStyle.Render(snap.RecipeTitle), snap.Completed(), len(r.Steps))

	if len(snap.Available) > 0 {
		b.WriteString("  " + stepStyle.Render("Ready now:") + "\n")
		for _, id := range snap.Available {
			b.WriteString("    " + stepLine(r, id, snap) + "\n")
		}
	}
	if len(snap.Blocked) > 0 {
		b.WriteString("  " + labelStyle.Render("Up next:") + "\n")
		for _, bs := range snap.Blocked {
			waiting := make([]string, 0, len(bs.WaitingOn))
			for _, w := range bs.WaitingOn {
				waiting = append(waiting, shortLabel(r, w))
			}
			b.WriteString("    " + stepLine(r, bs.StepID, snap) +
				secondaryStyle.Render("  waiting on "+strings.Join(waiting, ", ")) + "\n")
		}
	}
	if snap.Status == domain.SessionComplete {
		b.WriteString("  " + stepStyle.Render("All steps done. Enjoy!") + "\n")
	}
	return b.String()
}

func stepLine(r *domain.Recipe, id string, snap domain.SessionSnapshot) string {
	line := labelStyle.Render(r.Label(id)+": ") + primaryStyle.Render(textOf(r, id))
	if s := r.Step(id); s != nil {
		if meta := StepNotes(*s, false); meta != "" {
			line += secondaryStyle.Render(" (" + meta + ")")
		}
	}
	if t, ok := snap.Timers[id]; ok {
		line += " " + (timerInfo{label: "timer", remaining: t.Remaining(), state: t.State()}).styled()
	}
	return line
}

func (t timerInfo) styled() string {
	switch t.state {
	case domain.TimerExpired:
		return timerDoneStyle.Render("[" + t.text() + "]")
	case domain.TimerPaused:
		return timerPausedStyle.Render("[" + t.text() + "]")
	default:
		return timerRunStyle.Render("[" + t.text() + "]")
	}
}

// StepNotes describes how a step is worked: hands-off steps, the heat,
// and whether it has a timer of its own. withIngredients adds what the step
// uses.
func StepNotes(s domain.Step, withIngredients bool) string {
	var notes []string
	if s.IsPassive {
		notes = append(notes, "hands-off")
	}
	if s.Temperature != "" {
		notes = append(notes, "heat: "+s.Temperature)
	}
	if s.HasTimer() {
		notes = append(notes, "timer "+fmtMinutes(s.DurationMinutes))
	}
	if withIngredients && len(s.Ingredients) > 0 {
		notes = append(notes, "uses "+strings.Join(s.Ingredients, ", "))
	}
	return strings.Join(notes, "; ")
}

func textOf(r *domain.Recipe, id string) string {
	if s := r.Step(id); s != nil {
		return s.Text
	}
	return id
}

// shortLabel turns "Step 3" into "3" for compact lists.
func shortLabel(r *domain.Recipe, id string) string {
	return strings.TrimPrefix(r.Label(id), "Step ")
}

func fmtMinutes(m float64) string {
	if m == float64(int(m)) {
		return fmt.Sprintf("%dm", int(m))
	}
	return fmt.Sprintf("%.1fm", m)
}
