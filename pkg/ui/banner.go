package ui

import (
	"fmt"
	"os/user"
	"strings"

	"github.com/charmbracelet/lipgloss"
)

const Logo = `  ___
 / __|___ _  _ _ _ ___ ___
| (__/ _ \ || | '_(_-</ -_)
 \___\___/\_,_|_| /__/\___|`

func (u *UI) DrawBanner(modelName string, courseTitles []string) {
	borderColor := lipgloss.Color("#D97757")
	borderStyle := lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(borderColor).
		Padding(1, 2).
		Width(80)

	titleStyle := lipgloss.NewStyle().
		Foreground(lipgloss.Color("#7D7D7D")).
		MarginLeft(2)

	currentUser, _ := user.Current()
	username := "there"
	if currentUser != nil {
		if names := strings.Fields(currentUser.Name); len(names) > 0 {
			username = names[0]
		} else if currentUser.Username != "" {
			username = currentUser.Username
		}
	}

	welcomeStyle := lipgloss.NewStyle().
		Bold(true).
		Foreground(lipgloss.Color("#FFFFFF")).
		Align(lipgloss.Center).
		Width(30).
		MarginTop(1)
	logoStyle := lipgloss.NewStyle().
		Align(lipgloss.Center).
		Width(30).
		MarginTop(1).
		MarginBottom(1)
	infoStyle := lipgloss.NewStyle().
		Foreground(lipgloss.Color("#7D7D7D")).
		Align(lipgloss.Center).
		Width(30)

	leftCol := lipgloss.JoinVertical(
		lipgloss.Center,
		welcomeStyle.Render(fmt.Sprintf("Hi %s!", username)),
		logoStyle.Render(Logo),
		infoStyle.Render(modelName),
	)

	rightCol := lipgloss.JoinVertical(
		lipgloss.Left,
		lipgloss.NewStyle().Foreground(borderColor).Render(fmt.Sprintf("Courses (%d)", len(courseTitles))),
		courseList(courseTitles, 6),
	)

	content := lipgloss.JoinHorizontal(
		lipgloss.Top,
		leftCol,
		lipgloss.NewStyle().Border(lipgloss.NormalBorder(), false, false, false, true).BorderForeground(borderColor).Margin(0, 2).Padding(0, 2).Render(rightCol),
	)

	fmt.Println(titleStyle.Render("Course Assistant"))
	fmt.Println(borderStyle.Render(content))
}

func courseList(titles []string, limit int) string {
	if len(titles) == 0 {
		return "No courses loaded"
	}
	lines := make([]string, 0, limit+1)
	for i, t := range titles {
		if i == limit {
			lines = append(lines, fmt.Sprintf("…and %d more", len(titles)-limit))
			break
		}
		if r := []rune(t); len(r) > 34 {
			t = string(r[:33]) + "…"
		}
		lines = append(lines, "• "+t)
	}
	return strings.Join(lines, "\n")
}
