package output

import (
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"

	"workflowdesk/internal/model"
	"workflowdesk/internal/pipeline"
	"workflowdesk/internal/workflow"
)

// Board renders the pipeline board: a summary line, one column per stage,
// then the unstaged and, when showCompleted is set, completed lists.
func (p *Printer) Board(b pipeline.Board, showCompleted bool) {
	if b.Template == nil {
		p.println(p.styles.muted.Render("Select a workflow template to view its pipeline."))
		if b.Total > 0 {
			p.println(p.styles.muted.Render(fmt.Sprintf("%d workflow(s) reference a template that is not loaded.", b.Total)))
		}
		return
	}

	p.println(p.styles.title.Render(b.Template.Name) + p.styles.muted.Render(fmt.Sprintf("  %d workflow(s)", b.Total)))
	p.Summary(b.Summary)
	p.println("")

	if len(b.Columns) == 0 {
		p.println(p.styles.muted.Render("This template has no stages."))
	} else {
		cols := make([]string, len(b.Columns))
		for i, col := range b.Columns {
			cols[i] = p.column(col)
		}
		p.println(lipgloss.JoinHorizontal(lipgloss.Top, cols...))
	}

	if len(b.Unstaged) > 0 {
		p.println("")
		p.println(p.styles.header.Render(fmt.Sprintf("Not at a stage (%d)", len(b.Unstaged))))
		for _, c := range b.Unstaged {
			p.println("  " + p.cardLine(c.Instance))
		}
	}

	if showCompleted && len(b.Completed) > 0 {
		p.println("")
		p.println(p.styles.header.Render(fmt.Sprintf("Completed (%d)", len(b.Completed))))
		for _, c := range b.Completed {
			p.println("  " + p.styles.success.Render("✓ ") + p.cardLine(c.Instance) +
				p.styles.muted.Render("  completed "+formatTime(c.Instance.CompletedAt)))
		}
	}
}

func (p *Printer) column(col pipeline.Column) string {
	inner := p.cardWidth - 4
	var b strings.Builder
	name := col.Stage.Name
	if name == "" {
		name = col.Stage.ID
	}
	b.WriteString(p.styles.header.Render(truncate(name, inner-4) + " · " + strconv.Itoa(len(col.Cards))))
	if col.Stage.UserTypeGroup != "" {
		b.WriteString("\n" + p.styles.muted.Render(truncate(col.Stage.UserTypeGroup, inner)))
	}

	if len(col.Cards) == 0 {
		b.WriteString("\n\n" + p.styles.muted.Render("No workflows"))
	}
	for _, c := range col.Cards {
		b.WriteString("\n" + p.card(c, inner))
	}
	return p.styles.column.Width(p.cardWidth).Render(b.String())
}

func (p *Printer) card(c pipeline.Card, width int) string {
	inst := c.Instance
	lines := []string{
		truncate(inst.ClientName(), width),
		p.styles.muted.Render(truncate(inst.Preparer(), width)),
		fmt.Sprintf("%s %d%%", progressBar(inst.DisplayProgress()), inst.DisplayProgress()),
		p.statusText(model.ParseStatus(string(inst.Status)).Label()),
	}
	switch c.Action {
	case pipeline.ActionAdvance:
		next := ""
		if c.Next != nil {
			next = c.Next.Name
		}
		lines = append(lines, p.styles.action.Render(truncate("→ "+next, width)))
	case pipeline.ActionComplete:
		lines = append(lines, p.styles.action.Render("✓ ready to complete"))
	}
	lines = append(lines, p.styles.muted.Render(truncate(inst.ID, width)))
	return p.styles.card.Width(width).Render(strings.Join(lines, "\n"))
}

func (p *Printer) cardLine(inst model.Instance) string {
	return fmt.Sprintf("%s  %s  %d%%  %s",
		inst.ClientName(), p.styles.muted.Render(inst.Preparer()), inst.DisplayProgress(), p.styles.muted.Render(inst.ID))
}

// Summary renders the status counts and average progress.
func (p *Printer) Summary(s pipeline.Summary) {
	p.println(fmt.Sprintf("%s %d  %s %d  %s %d  %s %d%%",
		p.statusText("Active"), s.ActiveCount,
		p.statusText("Paused"), s.PausedCount,
		p.statusText("Completed"), s.CompletedCount,
		p.styles.muted.Render("Avg progress"), int(math.Round(s.AverageProgress))))
}

// Instances renders an instance table. Template names are looked up in
// templates; unknown templates show their id.
func (p *Printer) Instances(instances []model.Instance, templates []model.Template) {
	if len(instances) == 0 {
		p.println(p.styles.muted.Render("No workflow instances."))
		return
	}
	names := make(map[string]model.Template, len(templates))
	for _, t := range templates {
		names[t.ID] = t
	}

	rows := make([][]string, len(instances))
	for i, inst := range instances {
		tplName, stageName := inst.TemplateName, inst.CurrentStageName
		if t, ok := names[inst.TemplateID]; ok {
			tplName = t.Name
			if idx := pipeline.StageIndex(t.Stages, inst.CurrentStageID); idx >= 0 {
				stageName = t.Stages[idx].Name
			}
		}
		if tplName == "" {
			tplName = inst.TemplateID
		}
		if stageName == "" {
			stageName = model.NotAvailable
		}
		rows[i] = []string{
			inst.ID,
			truncate(inst.ClientName(), 24),
			truncate(tplName, 24),
			truncate(stageName, 20),
			model.ParseStatus(string(inst.Status)).Label(),
			strconv.Itoa(inst.DisplayProgress()) + "%",
			truncate(inst.Preparer(), 20),
		}
	}
	p.table([]string{"ID", "Client", "Template", "Stage", "Status", "Progress", "Preparer"}, rows)
}

// Instance renders the instance detail view with its execution log.
func (p *Printer) Instance(d workflow.InstanceDetail) {
	inst := d.Instance
	p.println(p.styles.title.Render(inst.ClientName()) + p.styles.muted.Render("  "+inst.ID))

	tplName, stageName := inst.TemplateName, inst.CurrentStageName
	if d.Template != nil {
		tplName = d.Template.Name
		if idx := pipeline.StageIndex(d.Template.Stages, inst.CurrentStageID); idx >= 0 {
			stageName = d.Template.Stages[idx].Name
		}
	}

	next := "None"
	switch d.Action {
	case pipeline.ActionAdvance:
		if d.Next != nil {
			next = "Advance to " + d.Next.Name
		}
	case pipeline.ActionComplete:
		next = "Complete"
	}

	p.field("Email", inst.ClientEmail())
	p.field("Preparer", inst.Preparer())
	p.field("Template", orNA(tplName))
	p.field("Stage", orNA(stageName))
	p.field("Status", p.statusText(model.ParseStatus(string(inst.Status)).Label()))
	p.field("Progress", fmt.Sprintf("%s %d%%", progressBar(inst.DisplayProgress()), inst.DisplayProgress()))
	p.field("Started", formatTime(inst.StartedAt))
	p.field("Completed", formatTime(inst.CompletedAt))
	p.field("Next step", next)

	p.println("")
	p.println(p.styles.header.Render("Execution log"))
	p.Logs(d.Logs)
}

// Logs renders an execution log table.
func (p *Printer) Logs(logs []model.ExecutionLog) {
	if len(logs) == 0 {
		p.println(p.styles.muted.Render("No log entries."))
		return
	}
	rows := make([][]string, len(logs))
	for i, l := range logs {
		rows[i] = []string{
			formatTime(l.CreatedAt),
			orNA(l.StageName),
			l.Action,
			orNA(l.ActorName),
			truncate(l.Message, 48),
		}
	}
	p.table([]string{"Time", "Stage", "Action", "By", "Message"}, rows)
}

// Templates renders the template list.
func (p *Printer) Templates(templates []model.Template) {
	if len(templates) == 0 {
		p.println(p.styles.muted.Render("No workflow templates."))
		return
	}
	rows := make([][]string, len(templates))
	for i, t := range templates {
		active := "no"
		if t.IsActive {
			active = "yes"
		}
		rows[i] = []string{t.ID, truncate(t.Name, 32), orNA(t.TaxFormType), active, strconv.Itoa(len(t.Stages))}
	}
	p.table([]string{"ID", "Name", "Form", "Active", "Stages"}, rows)
}

// Template renders one template with its ordered stages.
func (p *Printer) Template(t model.Template) {
	p.println(p.styles.title.Render(t.Name) + p.styles.muted.Render("  "+t.ID))
	if t.Description != "" {
		p.println(t.Description)
	}
	active := "no"
	if t.IsActive {
		active = "yes"
	}
	p.field("Form", orNA(t.TaxFormType))
	p.field("Active", active)
	p.field("Updated", formatTime(t.UpdatedAt))
	p.println("")

	rows := make([][]string, len(t.Stages))
	for i, st := range t.Stages {
		rows[i] = []string{strconv.Itoa(i + 1), st.Name, orNA(st.UserTypeGroup), st.ID}
	}
	if len(rows) == 0 {
		p.println(p.styles.muted.Render("This template has no stages."))
		return
	}
	p.table([]string{"#", "Stage", "Group", "ID"}, rows)
}

// Statistics renders the dashboard statistics.
func (p *Printer) Statistics(s model.Statistics) {
	p.println(p.styles.title.Render("Workflow statistics"))
	p.field("Templates", fmt.Sprintf("%d (%d active)", s.TotalTemplates, s.ActiveTemplates))
	p.field("Workflows", strconv.Itoa(s.TotalInstances))
	p.field("Active", strconv.Itoa(s.ActiveInstances))
	p.field("Paused", strconv.Itoa(s.PausedInstances))
	p.field("Completed", strconv.Itoa(s.CompletedInstances))
	p.field("Cancelled", strconv.Itoa(s.CancelledInstances))
	p.field("Avg time", fmt.Sprintf("%.1f h", s.AverageCompletionHours))
}

func (p *Printer) field(label, value string) {
	p.println(p.styles.label.Render(label) + value)
}

func (p *Printer) table(headers []string, rows [][]string) {
	t := table.New().
		Border(lipgloss.NormalBorder()).
		Headers(headers...).
		Rows(rows...).
		StyleFunc(func(row, col int) lipgloss.Style {
			if row == table.HeaderRow {
				return p.styles.tableHdr
			}
			return p.styles.tableRow
		})
	p.println(t.Render())
}

func orNA(s string) string {
	if strings.TrimSpace(s) == "" {
		return model.NotAvailable
	}
	return s
}
