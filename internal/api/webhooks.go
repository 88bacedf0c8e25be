package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/vaultgen/vaultgen/internal/domain"
	"github.com/vaultgen/vaultgen/internal/infra/observability"
)

// commandPayload is a normalized command event from the chat platform
// bridge. The same shape arrives for slash commands and prefixed text
// commands.
type commandPayload struct {
	UserID     string   `json:"user_id"`
	ChannelID  string   `json:"channel_id"`
	GuildID    string   `json:"guild_id"`
	Command    string   `json:"command"`
	Args       []string `json:"args"`
	Text       string   `json:"text"`
	Attachment []byte   `json:"attachment,omitempty"` // base64 in JSON
}

type messagePayload struct {
	UserID    string `json:"user_id"`
	ChannelID string `json:"channel_id"`
	MessageID string `json:"message_id"`
	Text      string `json:"text"`
}

type presencePayload struct {
	UserID string `json:"user_id"`
	Online bool   `json:"online"`
	Status string `json:"status"`
}

func (s *Server) handleCommand(w http.ResponseWriter, r *http.Request) {
	var p commandPayload
	if err := json.NewDecoder(r.Body).Decode(&p); err != nil {
		s.webhookStatus("command", http.StatusBadRequest)
		writeError(w, http.StatusBadRequest, "malformed payload")
		return
	}
	if p.UserID == "" || p.Command == "" {
		s.webhookStatus("command", http.StatusBadRequest)
		writeError(w, http.StatusBadRequest, "user_id and command are required")
		return
	}

	var replies []string
	inv := domain.Invocation{
		UserID:     p.UserID,
		ChannelID:  p.ChannelID,
		GuildID:    p.GuildID,
		Command:    strings.ToLower(p.Command),
		Args:       p.Args,
		Text:       p.Text,
		Attachment: p.Attachment,
		Replier: domain.ReplyFunc(func(text string) error {
			replies = append(replies, text)
			return nil
		}),
	}

	err := s.route(r, inv)
	status := http.StatusOK
	switch {
	case err == nil:
	case errors.Is(err, errUnknownCommand), errors.Is(err, errBadArgs):
		status = http.StatusBadRequest
	default:
		// Domain denials (banned, cooldown, out of stock...) already
		// answered the user; the webhook call itself succeeded.
	}
	s.webhookStatus("command", status)
	writeJSON(w, status, map[string]any{
		"replies": replies,
	})
}

func (s *Server) handleMessage(w http.ResponseWriter, r *http.Request) {
	var p messagePayload
	if err := json.NewDecoder(r.Body).Decode(&p); err != nil || p.UserID == "" {
		s.webhookStatus("message", http.StatusBadRequest)
		writeError(w, http.StatusBadRequest, "malformed payload")
		return
	}
	s.vouches.HandleMessage(r.Context(), p.UserID, p.ChannelID, p.MessageID, p.Text)
	s.webhookStatus("message", http.StatusOK)
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handlePresence(w http.ResponseWriter, r *http.Request) {
	var p presencePayload
	if err := json.NewDecoder(r.Body).Decode(&p); err != nil || p.UserID == "" {
		s.webhookStatus("presence", http.StatusBadRequest)
		writeError(w, http.StatusBadRequest, "malformed payload")
		return
	}
	s.status.HandlePresence(r.Context(), p.UserID, p.Online, p.Status)
	s.webhookStatus("presence", http.StatusOK)
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

var (
	errUnknownCommand = errors.New("unknown command")
	errBadArgs        = errors.New("bad arguments")
)

// route maps a normalized invocation onto the dispatcher.
func (s *Server) route(r *http.Request, inv domain.Invocation) error {
	ctx := r.Context()
	args := inv.Args

	// Tiered generation commands take the service name as their only
	// argument.
	if tier, err := domain.ParseTier(inv.Command); err == nil {
		if len(args) < 1 {
			inv.Reply("Usage: " + inv.Command + " <service>")
			return errBadArgs
		}
		s.dispatcher.Generate(ctx, inv, tier, args[0])
		return nil
	}

	argTier := func(i int) (domain.Tier, error) {
		if len(args) <= i {
			return "", errBadArgs
		}
		tier, err := domain.ParseTier(args[i])
		if err != nil {
			inv.Reply(fmt.Sprintf("Unknown tier %q. Use free, premium, or booster.", args[i]))
			return "", errBadArgs
		}
		return tier, nil
	}
	arg := func(i int) (string, error) {
		if len(args) <= i {
			inv.Reply("Missing argument.")
			return "", errBadArgs
		}
		return args[i], nil
	}

	switch inv.Command {
	case "help":
		s.dispatcher.Help(ctx, inv)
	case "info":
		s.dispatcher.Info(ctx, inv)
	case "status":
		s.dispatcher.Status(ctx, inv)
	case "vouches":
		s.dispatcher.Vouches(ctx, inv)
	case "restock":
		s.dispatcher.Restock(ctx, inv)
	case "stock":
		s.dispatcher.ViewStock(ctx, inv)

	case "create", "delete", "clear", "add", "upload":
		tier, err := argTier(0)
		if err != nil {
			return err
		}
		service, err := arg(1)
		if err != nil {
			return err
		}
		switch inv.Command {
		case "create":
			s.dispatcher.CreateService(ctx, inv, tier, service)
		case "delete":
			s.dispatcher.DeleteService(ctx, inv, tier, service)
		case "clear":
			s.dispatcher.ClearStock(ctx, inv, tier, service)
		case "add":
			s.dispatcher.AddStock(ctx, inv, tier, service, inv.Text)
		case "upload":
			s.dispatcher.UploadStock(ctx, inv, tier, service)
		}

	case "cooldown":
		tier, err := argTier(0)
		if err != nil {
			return err
		}
		dur, err := arg(1)
		if err != nil {
			return err
		}
		s.dispatcher.SetCooldown(ctx, inv, tier, dur)

	case "setlog", "setbanlogs", "setrestocklogs", "setbooster":
		channel, err := arg(0)
		if err != nil {
			return err
		}
		switch inv.Command {
		case "setlog":
			s.dispatcher.SetLogChannel(ctx, inv, channel)
		case "setbanlogs":
			s.dispatcher.SetBanLogChannel(ctx, inv, channel)
		case "setrestocklogs":
			s.dispatcher.SetRestockLogChannel(ctx, inv, channel)
		case "setbooster":
			s.dispatcher.SetBoosterChannel(ctx, inv, channel)
		}

	case "ban":
		target, err := arg(0)
		if err != nil {
			return err
		}
		duration := ""
		if len(args) > 1 {
			duration = args[1]
		}
		reason := strings.Join(argsFrom(args, 2), " ")
		s.dispatcher.BanUser(ctx, inv, target, duration, reason)

	case "unban":
		target, err := arg(0)
		if err != nil {
			return err
		}
		s.dispatcher.UnbanUser(ctx, inv, target)

	case "admin":
		action, err := arg(0)
		if err != nil {
			return err
		}
		target, err := arg(1)
		if err != nil {
			return err
		}
		switch action {
		case "add":
			s.dispatcher.AddAdmin(ctx, inv, target)
		case "remove":
			s.dispatcher.RemoveAdmin(ctx, inv, target)
		default:
			inv.Reply("Usage: admin add|remove <user>")
			return errBadArgs
		}

	case "admins":
		s.dispatcher.ListAdmins(ctx, inv)

	case "cstatus":
		// On-demand status-role verification; status text rides in Text.
		granted := s.status.CheckNow(ctx, inv.UserID, inv.Text)
		if granted {
			inv.Reply("Status verified — role granted.")
		} else {
			inv.Reply("Your status doesn't qualify for the role.")
		}

	default:
		inv.Reply(fmt.Sprintf("Unknown command %q. Try `help`.", inv.Command))
		return errUnknownCommand
	}
	return nil
}

func argsFrom(args []string, i int) []string {
	if len(args) <= i {
		return nil
	}
	return args[i:]
}

func (s *Server) webhookStatus(endpoint string, status int) {
	observability.WebhookRequests.WithLabelValues(endpoint, fmt.Sprint(status)).Inc()
}
