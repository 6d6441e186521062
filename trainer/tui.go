package main

import (
	"fmt"
	"strings"
	"sync/atomic"
	"time"

	"github.com/brensch/snekq/qlearn"
	tea "github.com/charmbracelet/bubbletea"
)

var totalSteps atomic.Int64

type model struct {
	episodes  int
	food      int
	bestFood  int
	steps     int64
	epsilon   float64
	tableSize int
	startTime time.Time
	recent    []string
	updates   chan qlearn.EpisodeResult
	learning  bool
	done      bool
}

func initialModel(updates chan qlearn.EpisodeResult, learning bool) model {
	return model{
		startTime: time.Now(),
		updates:   updates,
		learning:  learning,
	}
}

type TickMsg time.Time

// trainingDoneMsg is sent once the controller has stopped.
type trainingDoneMsg struct{}

func tickCmd() tea.Cmd {
	return tea.Tick(time.Millisecond*100, func(t time.Time) tea.Msg {
		return TickMsg(t)
	})
}

func (m model) Init() tea.Cmd {
	return tea.Batch(waitForUpdate(m.updates), tickCmd())
}

func waitForUpdate(updates chan qlearn.EpisodeResult) tea.Cmd {
	return func() tea.Msg {
		res, ok := <-updates
		if !ok {
			return trainingDoneMsg{}
		}
		return res
	}
}

func (m model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		if msg.String() == "q" || msg.String() == "ctrl+c" {
			return m, tea.Quit
		}
	case TickMsg:
		m.steps = totalSteps.Load()
		return m, tickCmd()
	case trainingDoneMsg:
		m.done = true
		return m, tea.Quit
	case qlearn.EpisodeResult:
		m.episodes++
		m.food += msg.Food
		m.bestFood = max(m.bestFood, msg.Food)
		m.epsilon = msg.Epsilon
		m.tableSize = msg.TableSize
		line := fmt.Sprintf("Episode %d: %s, Steps %d, Food %d, Reward %.1f", msg.Episode, msg.Phase, msg.Steps, msg.Food, msg.TotalReward)
		m.recent = append([]string{line}, m.recent...)
		if len(m.recent) > 10 {
			m.recent = m.recent[:10]
		}
		return m, waitForUpdate(m.updates)
	}
	return m, nil
}

func (m model) View() string {
	duration := time.Since(m.startTime)
	episodesPerSec := float64(m.episodes) / duration.Seconds()
	stepsPerSec := float64(m.steps) / duration.Seconds()
	if duration.Seconds() < 1 {
		episodesPerSec = 0
		stepsPerSec = 0
	}
	avgFood := 0.0
	if m.episodes > 0 {
		avgFood = float64(m.food) / float64(m.episodes)
	}

	var b strings.Builder
	mode := "training"
	if !m.learning {
		mode = "greedy play"
	}
	fmt.Fprintf(&b, "Mode:           %s\n", mode)
	fmt.Fprintf(&b, "Episodes:       %d\n", m.episodes)
	fmt.Fprintf(&b, "Total Steps:    %d\n", m.steps)
	fmt.Fprintf(&b, "Avg Food:       %.2f (best %d)\n", avgFood, m.bestFood)
	fmt.Fprintf(&b, "Epsilon:        %.4f\n", m.epsilon)
	fmt.Fprintf(&b, "Table States:   %d / %d\n", m.tableSize, qlearn.NumStateKeys)
	fmt.Fprintf(&b, "Duration:       %s\n", duration.Round(time.Second))
	fmt.Fprintf(&b, "Episodes/Sec:   %.2f\n", episodesPerSec)
	fmt.Fprintf(&b, "Steps/Sec:      %.2f\n\n", stepsPerSec)

	b.WriteString("Recent Episodes:\n")
	for _, line := range m.recent {
		b.WriteString(line + "\n")
	}

	if m.done {
		b.WriteString("\nTraining finished.\n")
	} else {
		b.WriteString("\nPress q to quit.\n")
	}
	return b.String()
}
