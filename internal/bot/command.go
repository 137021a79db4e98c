package bot

import (
	"errors"
	"strings"

	"github.com/xaenox/tag-bot/internal/storage"
)

// tagAction enumerates everything the tag command can do. Keeping the set
// closed means the handler switches over a fixed type instead of dispatching
// on raw subcommand strings.
type tagAction int

const (
	actionInvoke tagAction = iota
	actionCreate
	actionInfo
	actionList
	actionEdit
	actionDelete
)

type tagCommand struct {
	action  tagAction
	name    string
	content string
}

// parseTagCommand turns the argument string following /tag into a command.
// Tag names are trimmed and lowercased here so the store only ever sees
// normalized names. The returned error text is shown to the user as-is.
func parseTagCommand(args string) (tagCommand, error) {
	fields := strings.Fields(args)
	if len(fields) == 0 {
		return tagCommand{}, errors.New("Either specify a tag name or use one of the available commands.")
	}

	sub, rest := fields[0], fields[1:]

	var name string
	if len(rest) > 0 {
		name = strings.ToLower(strings.TrimSpace(rest[0]))
	}
	var content string
	if len(rest) > 1 {
		content = strings.Join(rest[1:], " ")
	}

	switch sub {
	case "create":
		if name == "" {
			return tagCommand{}, errors.New("Please specify a name for the tag.")
		}
		if content == "" {
			return tagCommand{}, errors.New("Please specify some content for the tag.")
		}
		return tagCommand{action: actionCreate, name: name, content: content}, nil
	case "info":
		if name == "" {
			return tagCommand{}, errors.New("Please specify a name for the tag to get info on.")
		}
		return tagCommand{action: actionInfo, name: name}, nil
	case "list":
		return tagCommand{action: actionList}, nil
	case "edit":
		if name == "" {
			return tagCommand{}, errors.New("Please specify a tag to edit.")
		}
		if content == "" {
			return tagCommand{}, errors.New("Please specify some content for the tag.")
		}
		return tagCommand{action: actionEdit, name: name, content: content}, nil
	case "delete":
		if name == "" {
			return tagCommand{}, errors.New("Please specify a tag to delete.")
		}
		return tagCommand{action: actionDelete, name: name}, nil
	default:
		// Anything that is not a subcommand is a tag invocation by name.
		return tagCommand{action: actionInvoke, name: strings.ToLower(sub)}, nil
	}
}

// userMessage maps each store error kind to its own user-facing message.
// Errors that are none of the typed kinds can only be persistence failures,
// where the mutation applied in memory but was not saved.
func userMessage(err error) string {
	switch {
	case errors.Is(err, storage.ErrNotFound):
		return "Tag not found."
	case errors.Is(err, storage.ErrTagExists):
		return "Tag already exists."
	case errors.Is(err, storage.ErrNotOwner):
		return "You do not have permission to do that."
	case errors.Is(err, storage.ErrNameBlocked):
		return "Tag name contains blocked words."
	case errors.Is(err, storage.ErrNameTooLong):
		return "Tag name limit is 100 characters."
	case errors.Is(err, storage.ErrEmptyContent):
		return "Please specify some content for the tag."
	default:
		return "Your change could not be saved. Please try again."
	}
}
