// Command debuggame plays one greedy episode from a saved value table and
// prints the board after every move.
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"math/rand"
	"os"
	"time"

	"github.com/brensch/snekq/logging"
	"github.com/brensch/snekq/qlearn"
	"github.com/brensch/snekq/rules"
	"github.com/brensch/snekq/store"
	"github.com/logrusorgru/aurora"
)

func main() {
	tablePath := flag.String("table", "data/qtable.parquet", "Value table, .parquet or .db")
	width := flag.Int("width", rules.DefaultWidth, "Board width")
	height := flag.Int("height", rules.DefaultHeight, "Board height")
	seed := flag.Int64("seed", 1, "Food placement seed")
	delay := flag.Duration("delay", 0, "Pause between turns")
	maxSteps := flag.Int("max-steps", 2000, "Truncate after this many steps without food")
	noColor := flag.Bool("no-color", false, "Disable ANSI colors")
	flag.Parse()

	logger, err := logging.New(os.Stderr, logging.FormatText, "warn")
	if err != nil {
		log.Fatalf("build logger: %v", err)
	}
	au := aurora.NewAurora(!*noColor)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
	defer cancel()

	backend := store.Open(*tablePath)
	table := store.LoadOrEmpty(ctx, backend, logger)

	params := qlearn.DefaultParams()
	params.MaxStepsWithoutFood = *maxSteps
	agent, err := qlearn.NewAgent(params, table, rand.New(rand.NewSource(*seed)))
	if err != nil {
		log.Fatalf("create agent: %v", err)
	}
	agent.SetLearning(false)

	sim := rules.NewGame(int32(*width), int32(*height), rand.New(rand.NewSource(*seed)))
	onStep := func(ev qlearn.StepEvent) {
		snap := ev.Snapshot
		fmt.Print(colorBoard(au, &snap))
		line := fmt.Sprintf("  Step %4d | %-5s | %-7s | reward %+.1f", ev.Step, ev.Action, ev.Outcome, ev.Reward)
		if key, err := qlearn.Encode(snap); err == nil && !snap.Dead {
			line += " | " + key.String() + " | " + describeValues(au, table.Get(key))
			line += fmt.Sprintf(" | legal %v", rules.GetLegalMoves(&snap))
		}
		fmt.Println(line)
		fmt.Println()
		if *delay > 0 {
			time.Sleep(*delay)
		}
	}

	controller := qlearn.NewController(agent, sim,
		qlearn.WithLogger(logger),
		qlearn.WithStepHook(onStep),
	)

	fmt.Printf("Loaded %d states from %s\n\n", table.Len(), backend.Path())
	res, err := controller.RunEpisode(ctx)
	if err != nil {
		log.Fatalf("episode failed: %v", err)
	}

	fmt.Println("═══════════════════════════════════════════════════════════════")
	fmt.Printf("  Episode %s after %d steps: food %d, score %d, reward %.1f\n",
		res.Phase, res.Steps, res.Food, sim.Score(), res.TotalReward)
	fmt.Println("═══════════════════════════════════════════════════════════════")
}
