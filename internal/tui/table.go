package tui

import (
	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"
	"golang.org/x/text/message"

	"grimm.is/phoque/internal/i18n"
	"grimm.is/phoque/internal/rules"
)

const actionColumn = 4

// RenderTable renders rs in collection order. Inactive rules are dimmed.
func RenderTable(rs []*rules.Rule, p *message.Printer) string {
	rows := make([][]string, 0, len(rs))
	for _, r := range rs {
		port := r.Port.String()
		if port == "" {
			port = "-"
		}
		active := p.Sprintf(i18n.MsgNo)
		if r.Active {
			active = p.Sprintf(i18n.MsgYes)
		}
		rows = append(rows, []string{
			r.ShortID(),
			string(r.Direction),
			string(r.Protocol),
			port,
			string(r.Action),
			active,
		})
	}

	t := table.New().
		Border(lipgloss.NormalBorder()).
		BorderStyle(StyleTableBorder).
		Headers(
			p.Sprintf(i18n.MsgHeaderID),
			p.Sprintf(i18n.MsgHeaderDirection),
			p.Sprintf(i18n.MsgHeaderProtocol),
			p.Sprintf(i18n.MsgHeaderPort),
			p.Sprintf(i18n.MsgHeaderAction),
			p.Sprintf(i18n.MsgHeaderActive),
		).
		Rows(rows...).
		StyleFunc(func(row, col int) lipgloss.Style {
			if row == table.HeaderRow {
				return StyleTableHeader
			}
			if row < 0 || row >= len(rs) {
				return StyleTableRow
			}
			if !rs[row].Active {
				return StyleTableRowInactive
			}
			if col == actionColumn {
				return actionStyle(rs[row].Action)
			}
			return StyleTableRow
		})

	return t.String()
}

func actionStyle(a rules.Action) lipgloss.Style {
	switch a {
	case rules.ActionDeny:
		return StyleActionDeny
	case rules.ActionReject:
		return StyleActionReject
	default:
		return StyleActionAllow
	}
}
