package main

import (
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/Kerhoff/WishShare/internal/client"
	"github.com/Kerhoff/WishShare/internal/models"
	"github.com/Kerhoff/WishShare/internal/realtime"
)

type app struct {
	Server string
	Token  string
}

func (a *app) client() (*client.Client, error) {
	if a.Token == "" {
		return nil, errors.New("not signed in: run `wishctl login` and export WISHSHARE_TOKEN")
	}
	return client.New(a.Server, a.Token), nil
}

func newRootCmd() *cobra.Command {
	a := &app{}

	cmd := &cobra.Command{
		Use:           "wishctl",
		Short:         "Command-line client for a WishShare server",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	cmd.Example = strings.TrimSpace(`
  wishctl login --email a@example.com --password secret
  wishctl lists
  wishctl items 42
  wishctl claim 42 7
  wishctl watch 42
`)

	cmd.PersistentFlags().StringVar(&a.Server, "server", envOr("WISHSHARE_URL", "http://localhost:8080"), "Server base URL (env WISHSHARE_URL)")
	cmd.PersistentFlags().StringVar(&a.Token, "token", os.Getenv("WISHSHARE_TOKEN"), "Bearer token (env WISHSHARE_TOKEN)")

	cmd.AddCommand(
		newLoginCmd(a),
		newListsCmd(a),
		newItemsCmd(a),
		newClaimCmd(a),
		newWatchCmd(a),
	)
	return cmd
}

func newLoginCmd(a *app) *cobra.Command {
	var email, password string
	cmd := &cobra.Command{
		Use:   "login",
		Short: "Sign in and print the token to export",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			c := client.New(a.Server, "")
			resp, err := c.Login(cmd.Context(), email, password)
			if err != nil {
				return writeErr(cmd, err)
			}
			fmt.Fprintf(cmd.ErrOrStderr(), "Signed in as %s\n", resp.User.Name())
			fmt.Fprintf(cmd.OutOrStdout(), "export WISHSHARE_TOKEN=%s\n", resp.Token)
			return nil
		},
	}
	cmd.Flags().StringVar(&email, "email", "", "Account email")
	cmd.Flags().StringVar(&password, "password", "", "Account password")
	_ = cmd.MarkFlagRequired("email")
	_ = cmd.MarkFlagRequired("password")
	return cmd
}

func newListsCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "lists",
		Short: "List your wishlists",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := a.client()
			if err != nil {
				return writeErr(cmd, err)
			}
			lists, err := c.Wishlists(cmd.Context())
			if err != nil {
				return writeErr(cmd, err)
			}

			tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintln(tw, "ID\tNAME\tITEMS\tMEMBERS\tOWNER")
			for _, w := range lists {
				count := 0
				if w.ItemCount != nil {
					count = *w.ItemCount
				}
				owner := strconv.FormatInt(w.OwnerID, 10)
				if w.Owner != nil {
					owner = w.Owner.DisplayName
				}
				fmt.Fprintf(tw, "%d\t%s\t%d\t%d\t%s\n", w.ID, w.Name, count, len(w.Members), owner)
			}
			return tw.Flush()
		},
	}
}

func newItemsCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "items <wishlist-id>",
		Short: "List the items of a wishlist",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			wishlistID, err := parseID(args[0])
			if err != nil {
				return writeErr(cmd, err)
			}
			c, err := a.client()
			if err != nil {
				return writeErr(cmd, err)
			}
			items, err := c.Items(cmd.Context(), wishlistID)
			if err != nil {
				return writeErr(cmd, err)
			}

			tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintln(tw, "ID\tNAME\tPRIORITY\tSTATUS\tPRICE\tCOMMENTS\tREACTIONS")
			for _, item := range items {
				fmt.Fprintf(tw, "%d\t%s\t%s\t%s\t%s\t%d\t%d\n",
					item.ID, item.Name, item.Priority, statusLabel(item), priceLabel(item),
					len(item.Comments), len(item.Reactions))
			}
			return tw.Flush()
		},
	}
}

func newClaimCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "claim <wishlist-id> <item-id>",
		Short: "Claim an item so nobody else buys it",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			wishlistID, err := parseID(args[0])
			if err != nil {
				return writeErr(cmd, err)
			}
			itemID, err := parseID(args[1])
			if err != nil {
				return writeErr(cmd, err)
			}
			c, err := a.client()
			if err != nil {
				return writeErr(cmd, err)
			}

			item, err := c.Claim(cmd.Context(), wishlistID, itemID)
			if err != nil {
				var apiErr *client.APIError
				if errors.As(err, &apiErr) && apiErr.Status == http.StatusConflict {
					return writeErr(cmd, fmt.Errorf("item %d was already claimed by someone else", itemID))
				}
				return writeErr(cmd, err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Claimed %q\n", item.Name)
			return nil
		},
	}
}

func newWatchCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "watch <wishlist-id>",
		Short: "Follow live changes to a wishlist",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			wishlistID, err := parseID(args[0])
			if err != nil {
				return writeErr(cmd, err)
			}
			c, err := a.client()
			if err != nil {
				return writeErr(cmd, err)
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			view := client.NewView()
			w, err := c.Wishlist(ctx, wishlistID)
			if err != nil {
				return writeErr(cmd, err)
			}
			view.ApplyWishlist(w)
			items, err := c.Items(ctx, wishlistID)
			if err != nil {
				return writeErr(cmd, err)
			}
			for _, item := range items {
				view.ApplyItem(item)
			}

			stream, err := client.Dial(ctx, a.Server, a.Token)
			if err != nil {
				return writeErr(cmd, err)
			}
			defer stream.Close()
			if err := stream.Join(wishlistID); err != nil {
				return writeErr(cmd, err)
			}

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "Watching %q (%d items). Press Ctrl+C to stop.\n", w.Name, len(items))
			err = stream.Watch(ctx, view, func(ev realtime.Event) {
				if line := describe(view, ev); line != "" {
					fmt.Fprintln(out, line)
				}
			})
			if err != nil {
				return writeErr(cmd, err)
			}
			return nil
		},
	}
}

// describe renders an applied event as one line of output
func describe(view *client.View, ev realtime.Event) string {
	itemName := func(id int64) string {
		if item, ok := view.Item(id); ok {
			return strconv.Quote(item.Name)
		}
		return "#" + strconv.FormatInt(id, 10)
	}

	switch ev.Type {
	case realtime.EventItemAdded, realtime.EventItemUpdated, realtime.EventItemClaimed:
		var p realtime.ItemPayload
		if ev.Decode(&p) != nil || p.Item == nil {
			return ""
		}
		verb := map[realtime.EventType]string{
			realtime.EventItemAdded:   "added",
			realtime.EventItemUpdated: "updated",
			realtime.EventItemClaimed: "claimed",
		}[ev.Type]
		return fmt.Sprintf("item %s %s [%s]", strconv.Quote(p.Item.Name), verb, statusLabel(p.Item))
	case realtime.EventItemDeleted:
		var p realtime.ItemDeletedPayload
		if ev.Decode(&p) != nil {
			return ""
		}
		return fmt.Sprintf("item #%d deleted", p.ItemID)
	case realtime.EventCommentAdded:
		var p realtime.CommentPayload
		if ev.Decode(&p) != nil || p.Comment == nil {
			return ""
		}
		author := "someone"
		if p.Comment.User != nil {
			author = p.Comment.User.DisplayName
		}
		return fmt.Sprintf("%s on %s: %s", author, itemName(p.ItemID), p.Comment.Text)
	case realtime.EventCommentDeleted:
		return "a comment was deleted"
	case realtime.EventReactionUpdated:
		var p realtime.ReactionPayload
		if ev.Decode(&p) != nil || p.Reaction == nil {
			return ""
		}
		return fmt.Sprintf("%s reaction on %s", p.Reaction.Emoji, itemName(p.ItemID))
	case realtime.EventMemberInvited:
		var p realtime.MemberInvitedPayload
		if ev.Decode(&p) != nil || p.NewMember == nil {
			return ""
		}
		return fmt.Sprintf("%s joined the wishlist", p.NewMember.DisplayName)
	case realtime.EventMemberRemoved:
		return "a member left the wishlist"
	case realtime.EventWishlistUpdated:
		return "wishlist details changed"
	case realtime.EventWishlistDeleted:
		return "wishlist was deleted"
	case realtime.EventError:
		var p realtime.ErrorPayload
		if ev.Decode(&p) != nil {
			return "error"
		}
		return "error: " + p.Message
	}
	return ""
}

func statusLabel(item *models.Item) string {
	if item.ClaimedBy != nil && item.Status != models.ItemStatusAvailable {
		return fmt.Sprintf("%s by %s", item.Status, item.ClaimedBy.DisplayName)
	}
	return string(item.Status)
}

func priceLabel(item *models.Item) string {
	if item.Price == nil {
		return "-"
	}
	return fmt.Sprintf("%.2f %s", *item.Price, item.Currency)
}

func parseID(raw string) (int64, error) {
	id, err := strconv.ParseInt(strings.TrimSpace(raw), 10, 64)
	if err != nil || id <= 0 {
		return 0, fmt.Errorf("invalid id %q", raw)
	}
	return id, nil
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func writeErr(cmd *cobra.Command, err error) error {
	fmt.Fprintln(cmd.ErrOrStderr(), err.Error())
	return err
}
