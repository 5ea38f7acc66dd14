package commands

import (
	"context"
	"fmt"
	"strings"

	"github.com/onnwee/chatwarden/banlist"
)

// fixedText replies with the configured text for token.
func fixedText(token string) Handler {
	return HandlerFunc(func(_ context.Context, env *Env, _ string) (string, error) {
		text, ok := env.Config.ChatCommands()[token]
		if !ok || strings.TrimSpace(text) == "" {
			return "", fmt.Errorf("no response text configured for %s", token)
		}
		return text, nil
	})
}

func banCommand(_ context.Context, env *Env, message string) (string, error) {
	username := argument(message)
	if username == "" {
		return "Usage: !ban <username>", nil
	}
	out, err := env.Bans.Ban(username)
	if err != nil {
		return "", fmt.Errorf("ban %s: %w", username, err)
	}
	if out == banlist.AlreadyBanned {
		return fmt.Sprintf("User %s is already banned.", username), nil
	}
	return fmt.Sprintf("User %s has been banned from the chat.", username), nil
}

func unbanCommand(_ context.Context, env *Env, message string) (string, error) {
	username := argument(message)
	if username == "" {
		return "Usage: !unban <username>", nil
	}
	out, err := env.Bans.Unban(username)
	if err != nil {
		return "", fmt.Errorf("unban %s: %w", username, err)
	}
	if out == banlist.NotBanned {
		return fmt.Sprintf("User %s is not banned.", username), nil
	}
	return fmt.Sprintf("User %s has been unbanned.", username), nil
}

func loadCommand(_ context.Context, env *Env, message string) (string, error) {
	name := argument(message)
	if name == "" {
		return "Usage: !load <command>", nil
	}
	if err := env.Registry.Load(name); err != nil {
		return fmt.Sprintf("Failed to load command %s. Make sure the command exists.", name), nil
	}
	return fmt.Sprintf("Command %s loaded successfully.", name), nil
}

func unloadCommand(_ context.Context, env *Env, message string) (string, error) {
	name := argument(message)
	if name == "" {
		return "Usage: !unload <command>", nil
	}
	if !env.Registry.Unload(name) {
		return fmt.Sprintf("Failed to unload command %s. Make sure the command is loaded.", name), nil
	}
	return fmt.Sprintf("Command %s unloaded successfully.", name), nil
}

func reloadCommand(_ context.Context, env *Env, message string) (string, error) {
	name := argument(message)
	if name == "" {
		return "Usage: !reload <command>", nil
	}
	if err := env.Registry.Reload(name); err != nil {
		return fmt.Sprintf("Failed to reload command %s. Make sure the command is loaded.", name), nil
	}
	return fmt.Sprintf("Command %s reloaded successfully.", name), nil
}
