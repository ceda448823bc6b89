// Package console implements the line-oriented admin console attached to the
// server process's stdin. It is operator glue over the scheduling and
// presence APIs; nothing in the socket runtime depends on it.
package console

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"strings"

	"go.uber.org/zap"

	"github.com/sablehq/sable/internal/presence"
	"github.com/sablehq/sable/internal/socket"
	"github.com/sablehq/sable/internal/tasks"
)

// Console reads commands one line at a time and runs them against the live
// server components.
type Console struct {
	Logger    *zap.SugaredLogger
	Scheduler *tasks.Scheduler
	Presence  *presence.Tracker
	Listener  *socket.Listener
	// Shutdown requests a server-wide shutdown; wired to the root context's
	// cancel function.
	Shutdown context.CancelFunc
}

// Run consumes lines from in until it is exhausted or the context ends.
func (c *Console) Run(ctx context.Context, in io.Reader, out io.Writer) {
	scanner := bufio.NewScanner(in)

	for scanner.Scan() {
		select {
		case <-ctx.Done():
			return
		default:
		}

		if quit := c.execute(strings.TrimSpace(scanner.Text()), out); quit {
			return
		}
	}
}

// execute parses and runs one command line, reporting whether the console
// should exit.
func (c *Console) execute(line string, out io.Writer) bool {
	if line == "" {
		return false
	}

	fields := strings.Fields(line)
	command, args := strings.ToLower(fields[0]), fields[1:]

	switch command {
	case "help":
		fmt.Fprint(out, helpText)
	case "players":
		c.printPlayers(out)
	case "conns":
		c.printConns(out)
	case "count":
		fmt.Fprintf(out, "%d connection(s), %d player(s) online\n",
			c.Listener.NumConnected(), len(c.Presence.Snapshot()))
	case "record":
		c.record(out, args)
	case "tasks":
		if len(args) != 1 {
			fmt.Fprintln(out, "usage: tasks <playerId>")
			return false
		}
		c.printTasks(out, args[0])
	case "stopall":
		if len(args) != 1 {
			fmt.Fprintln(out, "usage: stopall <playerId>")
			return false
		}
		stopped := c.Scheduler.StopAllForPlayer(args[0])
		fmt.Fprintf(out, "stopped %d task(s) for player %s\n", stopped, args[0])
	case "kick":
		if len(args) != 1 {
			fmt.Fprintln(out, "usage: kick <playerId>")
			return false
		}
		c.kick(out, args[0])
	case "quit", "exit":
		fmt.Fprintln(out, "shutting down")
		c.Shutdown()
		return true
	default:
		fmt.Fprintf(out, "unknown command %q (try help)\n", command)
	}
	return false
}

func (c *Console) printPlayers(out io.Writer) {
	entries := c.Presence.Snapshot()
	if len(entries) == 0 {
		fmt.Fprintln(out, "no players online")
		return
	}
	for _, e := range entries {
		fmt.Fprintf(out, "%s\t%s\t%s\tsince %s\n",
			e.PlayerID, e.Username, e.RemoteAddr, e.ConnectedAt.Format("15:04:05"))
	}
}

// printConns lists every open connection, including ones that have not
// authenticated yet and so are invisible to the presence table.
func (c *Console) printConns(out io.Writer) {
	clients := c.Listener.Clients()
	if len(clients) == 0 {
		fmt.Fprintln(out, "no open connections")
		return
	}
	for _, client := range clients {
		player := client.PlayerID()
		if player == "" {
			player = "(unauthenticated)"
		}
		fmt.Fprintf(out, "%s\t%s\n", client.RemoteAddr(), player)
	}
}

// record reads or writes one of a player's context records.
func (c *Console) record(out io.Writer, args []string) {
	if len(args) < 2 {
		fmt.Fprintln(out, "usage: record <playerId> <key> [value]")
		return
	}
	playerID, key := args[0], args[1]

	if len(args) == 2 {
		value, found := c.Presence.GetRecord(playerID, key)
		if !found {
			fmt.Fprintf(out, "no record %s for player %s\n", key, playerID)
			return
		}
		fmt.Fprintf(out, "%v\n", value)
		return
	}

	c.Presence.PutRecord(playerID, key, strings.Join(args[2:], " "))
	fmt.Fprintf(out, "recorded %s for player %s\n", key, playerID)
}

func (c *Console) printTasks(out io.Writer, playerID string) {
	running := c.Scheduler.ListRunning(playerID)
	if len(running) == 0 {
		fmt.Fprintf(out, "no running tasks for player %s\n", playerID)
		return
	}
	for _, inst := range running {
		fmt.Fprintf(out, "%s\t%s\n", inst.ID, inst.Category)
	}
}

func (c *Console) kick(out io.Writer, playerID string) {
	client := c.Listener.FindClient(playerID)
	if client == nil {
		fmt.Fprintf(out, "player %s is not connected\n", playerID)
		return
	}

	c.Logger.Infof("kicking player %s (%s)", playerID, client.RemoteAddr())
	client.Shutdown()
	fmt.Fprintf(out, "kicked player %s\n", playerID)
}

const helpText = `commands:
  players            list online players
  conns              list open connections
  count              connection and player counts
  tasks <playerId>   list a player's running tasks
  stopall <playerId> stop all of a player's tasks
  record <playerId> <key> [value]
                     read or write a player context record
  kick <playerId>    disconnect a player
  quit               shut the server down
`
