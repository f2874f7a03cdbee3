package cmd

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/nrenier/ICorNet-sub000/model"
	"github.com/nrenier/ICorNet-sub000/service"
)

var (
	chatDomain   string
	chatRegion   string
	chatProvince string
	chatFull     bool
	chatYes      bool
)

var chatCmd = &cobra.Command{
	Use:   "chat",
	Short: "Talk to the recommendation assistants",
}

func withChat(cmd *cobra.Command, fn func(a *app, s *service.ChatSession) error) error {
	domain, err := service.ChatDomainByTag(chatDomain)
	if err != nil {
		return err
	}
	a, err := newApp(cmd, true)
	if err != nil {
		return err
	}
	defer a.close()

	if chatRegion != "" {
		cfg.Chat.Region = chatRegion
	}
	if chatProvince != "" {
		cfg.Chat.Province = chatProvince
	}
	return fn(a, a.chatSession(domain))
}

var chatSendCmd = &cobra.Command{
	Use:   "send <message>",
	Short: "Send a message and print the reply",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withChat(cmd, func(a *app, s *service.ChatSession) error {
			reply, err := s.Send(cmd.Context(), strings.Join(args, " "))
			if reply.Content != nil {
				printEntry(a, reply)
			}
			return err
		})
	},
}

var chatHistoryCmd = &cobra.Command{
	Use:   "history",
	Short: "List past conversations, most recent first",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return withChat(cmd, func(a *app, s *service.ChatSession) error {
			if err := s.LoadHistory(cmd.Context()); err != nil {
				return err
			}
			convs := s.State().Conversations
			if len(convs) == 0 {
				fmt.Fprintln(a.out, "No conversations")
				return nil
			}
			for i, c := range convs {
				fmt.Fprintf(a.out, "%d. %s (%s)\n", i+1, c.Title, c.StartTimestamp())
				if chatFull {
					for _, e := range c.Entries {
						printEntry(a, e)
					}
					fmt.Fprintln(a.out)
				}
			}
			return nil
		})
	},
}

var chatDeleteCmd = &cobra.Command{
	Use:   "delete <n>",
	Short: "Delete the n-th conversation listed by history",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		n, err := strconv.Atoi(args[0])
		if err != nil || n < 1 {
			return fmt.Errorf("invalid conversation number %q", args[0])
		}
		return withChat(cmd, func(a *app, s *service.ChatSession) error {
			if err := s.LoadHistory(cmd.Context()); err != nil {
				return err
			}
			convs := s.State().Conversations
			if n > len(convs) {
				return fmt.Errorf("conversation %d not found (%d conversations)", n, len(convs))
			}
			conv := convs[n-1]

			confirmed := chatYes || confirm(cmd.InOrStdin(), a.out, fmt.Sprintf("Delete conversation %q?", conv.Title))
			if !confirmed {
				fmt.Fprintln(a.out, "Cancelled")
				return nil
			}
			return s.DeleteConversation(cmd.Context(), conv.ID, true)
		})
	},
}

func printEntry(a *app, e model.ChatEntry) {
	who := map[string]string{
		model.MessageUser:      "you",
		model.MessageAssistant: "assistant",
		model.MessageError:     "error",
	}[e.Type]
	fmt.Fprintf(a.out, "[%s] %s\n", who, e.Content.Display())
}

func init() {
	chatCmd.PersistentFlags().StringVarP(&chatDomain, "domain", "d", service.SUKChat.Tag, "Chat: suk, startup")
	chatSendCmd.Flags().StringVar(&chatRegion, "region", "", "Region filter (startup chat)")
	chatSendCmd.Flags().StringVar(&chatProvince, "province", "", "Province filter (startup chat)")
	chatHistoryCmd.Flags().BoolVar(&chatFull, "full", false, "Print every message")
	chatDeleteCmd.Flags().BoolVarP(&chatYes, "yes", "y", false, "Do not ask for confirmation")

	chatCmd.AddCommand(chatSendCmd, chatHistoryCmd, chatDeleteCmd)
	rootCmd.AddCommand(chatCmd)
}
