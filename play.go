package main

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"sync"

	"github.com/urfave/cli/v3"
	"github.com/wricardo/mcp-training/daifugo/game/card"
	"github.com/wricardo/mcp-training/daifugo/game/engine"
	"github.com/wricardo/mcp-training/daifugo/game/service"
)

const playHelp = `commands:
  join            take a seat
  start           ask the server to deal
  select <card>   toggle a card, e.g. select 10H, select joker or select joker2
  clear           clear the selection
  submit          play the selected cards
  pass            pass the turn
  state           show the table
  quit            leave the room`

func playCommand() *cli.Command {
	return &cli.Command{
		Name:      "play",
		Usage:     "play one seat from the terminal",
		ArgsUsage: "<room> <player>",
		Action:    runPlay,
	}
}

// terminal prints narration and turn prompts as the session changes
type terminal struct {
	mu      sync.Mutex
	w       io.Writer
	player  string
	logSeen int
	myTurn  bool
	ended   bool
	closed  chan struct{}
	once    sync.Once
}

func newTerminal(w io.Writer, player string) *terminal {
	return &terminal{w: w, player: player, closed: make(chan struct{})}
}

func (t *terminal) BroadcastState(_ string, state engine.State) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if len(state.Log) < t.logSeen {
		t.logSeen = 0
	}
	for _, line := range state.Log[t.logSeen:] {
		fmt.Fprintf(t.w, "* %s\n", line)
	}
	t.logSeen = len(state.Log)

	current, _ := state.CurrentPlayerName()
	myTurn := current == t.player
	if myTurn && !t.myTurn {
		fmt.Fprintln(t.w, "-- your turn --")
		printState(t.w, state, t.player)
	}
	t.myTurn = myTurn

	standings, ended := state.Standings()
	ended = ended && len(standings) > 0
	if ended && !t.ended {
		fmt.Fprintf(t.w, "game over: %s\n", strings.Join(standings, ", "))
	}
	t.ended = ended
}

func (t *terminal) BroadcastEvent(_ string, event string, data any) {
	if event != "session_closed" {
		return
	}
	t.mu.Lock()
	fmt.Fprintf(t.w, "connection closed: %v\n", data)
	t.mu.Unlock()
	t.once.Do(func() { close(t.closed) })
}

func runPlay(ctx context.Context, cmd *cli.Command) error {
	if cmd.Args().Len() != 2 {
		return cli.Exit("usage: daifugo play <room> <player>", 2)
	}
	room, player := cmd.Args().Get(0), cmd.Args().Get(1)

	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}

	out := writer(cmd)
	term := newTerminal(out, player)
	svc, manager, err := buildService(cfg, slog.Default(), term)
	if err != nil {
		return err
	}
	defer manager.CloseAll()

	info, err := svc.Connect(ctx, room, player)
	if err != nil {
		return err
	}
	fmt.Fprintf(out, "connected to %s as %s (session %s)\n%s\n", room, player, info.ID, playHelp)

	lines := make(chan string)
	go func() {
		defer close(lines)
		scanner := bufio.NewScanner(reader(cmd))
		for scanner.Scan() {
			lines <- scanner.Text()
		}
	}()

	for {
		select {
		case <-ctx.Done():
			return svc.Leave(context.Background(), info.ID)
		case <-term.closed:
			return nil
		case line, ok := <-lines:
			if !ok {
				return svc.Leave(ctx, info.ID)
			}
			quit, err := playLine(ctx, svc, info.ID, player, out, line)
			if err != nil {
				fmt.Fprintf(out, "error: %v\n", err)
			}
			if quit {
				return svc.Leave(ctx, info.ID)
			}
		}
	}
}

// playLine runs one terminal command. It reports true when the user quits.
func playLine(ctx context.Context, svc service.GameService, sessionID, player string, out io.Writer, line string) (bool, error) {
	fields := strings.Fields(line)
	if len(fields) == 0 {
		return false, nil
	}

	var err error
	switch strings.ToLower(fields[0]) {
	case "join":
		_, err = svc.Join(ctx, sessionID)
	case "start":
		_, err = svc.StartGame(ctx, sessionID)
	case "select", "s":
		if len(fields) != 2 {
			return false, fmt.Errorf("usage: select <card>")
		}
		c, perr := card.Parse(fields[1])
		if perr != nil {
			return false, perr
		}
		var result *service.SelectionResult
		if result, err = svc.ToggleCard(ctx, sessionID, c); err == nil {
			fmt.Fprintf(out, "selected: %s\n", cardList(result.Selected))
		}
	case "clear":
		_, err = svc.ClearSelection(ctx, sessionID)
	case "submit":
		var result *service.ActionResult
		if result, err = svc.SubmitCards(ctx, sessionID); err == nil {
			fmt.Fprintf(out, "submitted: %s\n", cardList(result.Cards))
		}
	case "pass":
		_, err = svc.Pass(ctx, sessionID)
	case "state":
		var state *engine.State
		if state, err = svc.GetState(ctx, sessionID); err == nil {
			printState(out, *state, player)
		}
	case "quit", "exit":
		return true, nil
	case "help", "?":
		fmt.Fprintln(out, playHelp)
	default:
		return false, fmt.Errorf("unknown command %q (try help)", fields[0])
	}
	return false, err
}

func cardList(cards []card.Card) string {
	if len(cards) == 0 {
		return "-"
	}
	parts := make([]string, len(cards))
	for i, c := range cards {
		parts[i] = c.String()
	}
	return strings.Join(parts, " ")
}

// printState renders the table the way the browser view lays it out
func printState(w io.Writer, state engine.State, me string) {
	fmt.Fprintf(w, "phase: %s", state.Phase)
	if len(state.Constraints) > 0 {
		modes := make([]string, len(state.Constraints))
		for i, c := range state.Constraints {
			modes[i] = string(c)
		}
		fmt.Fprintf(w, " [%s]", strings.Join(modes, ", "))
	}
	fmt.Fprintln(w)

	current, _ := state.CurrentPlayerName()
	for _, p := range state.Players {
		marker := " "
		if p.Name == current {
			marker = ">"
		}
		role := ""
		if p.Role != "" {
			role = " " + string(p.Role)
		}
		you := ""
		if p.Name == me {
			you = " (you)"
		}
		fmt.Fprintf(w, "%s %-12s %2d%s%s\n", marker, p.Name, p.HandCount, role, you)
	}

	fmt.Fprintf(w, "field:    %s\n", cardList(state.FieldTop))
	fmt.Fprintf(w, "hand:     %s\n", cardList(state.Hand))
	fmt.Fprintf(w, "selected: %s\n", cardList(state.Selected.Cards()))

	if standings, ok := state.Standings(); ok {
		for i, name := range standings {
			fmt.Fprintf(w, "%d. %s\n", i+1, name)
		}
	}
}
