package cli

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/ppiankov/adhikaar/internal/conversation"
	"github.com/ppiankov/adhikaar/internal/model"
)

// chatCmd represents the chat command
var chatCmd = &cobra.Command{
	Use:   "chat",
	Short: "Answer a few questions and get matching schemes",
	Long: `Chat runs the interactive eligibility assistant.

The assistant asks one question at a time. Answer in your own words; short
answers like "yes", "no" or a number are understood directly. Once the
profile is complete the catalog is checked and the matching schemes are
listed.

Without an LLM provider every reply is read as the literal answer to the
current question.

Example:
  adhikaar chat
  adhikaar chat --catalog ./schemes.yaml
  ADHIKAAR_LLM_PROVIDER=openrouter adhikaar chat`,
	Args: cobra.NoArgs,
	RunE: runChat,
}

func init() {
	rootCmd.AddCommand(chatCmd)
}

func runChat(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	a, err := newApp(ctx, cfg)
	if err != nil {
		return err
	}
	defer a.Close()

	orch, err := a.orchestrator()
	if err != nil {
		return err
	}

	return chatLoop(ctx, orch, cmd.InOrStdin(), cmd.OutOrStdout(), a.logger)
}

// chatLoop feeds lines from in to the orchestrator until the session is done,
// input ends or ctx is cancelled
func chatLoop(ctx context.Context, orch *conversation.Orchestrator, in io.Reader, out io.Writer, logger *zap.Logger) error {
	state, reply := orch.Start(ctx)
	printReply(out, reply)

	scanner := bufio.NewScanner(in)
	for state.Phase != conversation.PhaseDone {
		fmt.Fprint(out, "> ")
		if !scanner.Scan() {
			fmt.Fprintln(out)
			break
		}
		if ctx.Err() != nil {
			return ctx.Err()
		}

		state, reply = orch.Step(ctx, state, scanner.Text())
		printReply(out, reply)
	}
	if err := scanner.Err(); err != nil {
		return fmt.Errorf("read input: %w", err)
	}

	logger.Debug("session ended",
		zap.String("session", state.ID),
		zap.String("phase", string(state.Phase)),
		zap.Int("turns", state.Turns),
		zap.Int("eligible", len(state.Eligible)))
	return nil
}

func printReply(w io.Writer, reply conversation.Reply) {
	for _, msg := range reply.Messages {
		if strings.TrimSpace(msg) == "" {
			continue
		}
		fmt.Fprintf(w, "\n%s\n", msg)
	}
	if len(reply.Schemes) > 0 {
		fmt.Fprintln(w)
		printSchemes(w, reply.Schemes)
	}
}

// printSchemes writes a numbered scheme list
func printSchemes(w io.Writer, schemes []model.Scheme) {
	for i, s := range schemes {
		fmt.Fprintf(w, "  %d. %s", i+1, s.Name)
		if s.StateType != "" {
			fmt.Fprintf(w, " [%s]", s.StateType)
		}
		fmt.Fprintln(w)
		if s.ShortDescription != "" {
			fmt.Fprintf(w, "     %s\n", s.ShortDescription)
		}
		if s.OfficialLink != "" {
			fmt.Fprintf(w, "     %s\n", s.OfficialLink)
		}
	}
}
