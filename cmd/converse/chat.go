package main

import (
	"bufio"
	"fmt"
	"os"
	"strings"
	"time"

	"converse/internal/chat/biz"
	"converse/internal/chat/types"
	"converse/internal/pkg/errors"

	"github.com/spf13/cobra"
)

var chatCmd = &cobra.Command{
	Use:   "chat [project-id]",
	Short: "Start an interactive conversation",
	Long: `Start an interactive conversation. With a project id the session
resumes that project's history; without one a project is created when
the first message is sent.

Commands inside the session:
  /projects        list projects
  /switch <id>     switch to another project
  /quit            leave the session`,
	Args: cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, cancel := signalContext()
		defer cancel()

		projectID := ""
		if len(args) == 1 {
			projectID = args[0]
		}

		if err := chat.Open(ctx, projectID); err != nil {
			return err
		}

		sess := chat.Session()
		done := make(chan struct{}, 1)
		sess.OnTurnFinished(func(turn *types.Turn, err error) {
			if err != nil {
				fmt.Fprintf(os.Stderr, "\n[assistant stopped early: %s]\n", errors.GetDetails(err))
			}
			done <- struct{}{}
		})

		printHistory(sess.Messages())

		scanner := bufio.NewScanner(os.Stdin)
		for {
			fmt.Print("> ")
			if !scanner.Scan() {
				return scanner.Err()
			}
			line := strings.TrimSpace(scanner.Text())

			switch {
			case line == "":
				continue
			case line == "/quit":
				return nil
			case line == "/projects":
				for _, p := range sess.Projects() {
					marker := " "
					if p.ID == sess.CurrentProjectID() {
						marker = "*"
					}
					fmt.Printf("%s %s  %s\n", marker, p.ID, p.Name)
				}
				continue
			case strings.HasPrefix(line, "/switch "):
				id := strings.TrimSpace(strings.TrimPrefix(line, "/switch "))
				if err := sess.SwitchProject(ctx, id); err != nil {
					fmt.Fprintf(os.Stderr, "switch failed: %s\n", errors.GetDetails(err))
					continue
				}
				printHistory(sess.Messages())
				continue
			}

			if err := sess.Send(ctx, line); err != nil {
				fmt.Fprintf(os.Stderr, "send failed: %s\n", errors.GetDetails(err))
				continue
			}

			waitAndRender(sess, done)
		}
	},
}

func init() {
	rootCmd.AddCommand(chatCmd)
}

func printHistory(msgs []types.Message) {
	for _, m := range msgs {
		printMessage(m)
	}
}

func printMessage(m types.Message) {
	label := "assistant"
	if m.Role == types.RoleUser {
		label = "you"
	}
	fmt.Printf("%s: %s\n", label, m.Content)
}

// waitAndRender prints the assistant's reply as it streams in, polling
// the session snapshot until the turn finishes.
func waitAndRender(sess *biz.Session, done <-chan struct{}) {
	fmt.Print("assistant: ")
	printed := 0

	ticker := time.NewTicker(80 * time.Millisecond)
	defer ticker.Stop()

	for {
		select {
		case <-done:
			printed = flushAssistant(sess, printed)
			fmt.Println()
			return
		case <-ticker.C:
			printed = flushAssistant(sess, printed)
		}
	}
}

// flushAssistant emits whatever assistant content arrived since the last
// call and returns the new printed length.
func flushAssistant(sess *biz.Session, printed int) int {
	msgs := sess.Messages()
	if len(msgs) == 0 {
		return printed
	}
	last := msgs[len(msgs)-1]
	if last.Role != types.RoleAssistant {
		return printed
	}

	out, printed := renderDelta(last.Content, printed)
	fmt.Print(out)
	return printed
}

// renderDelta returns the output to emit given the assistant's full
// content so far and how much of it was already printed. A corrective
// frame can shrink the content; the replacement restarts on a new line.
func renderDelta(content string, printed int) (string, int) {
	if len(content) < printed {
		return "\nassistant: " + content, len(content)
	}
	return content[printed:], len(content)
}
