package bot

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/xaenox/tag-bot/internal/models"
	"github.com/xaenox/tag-bot/internal/storage"
	"go.uber.org/zap"
)

type Bot struct {
	api    *tgbotapi.BotAPI
	store  *storage.TagStore
	lookup UserLookup
	logger *zap.Logger
}

func New(token string, store *storage.TagStore, logger *zap.Logger) (*Bot, error) {
	api, err := tgbotapi.NewBotAPI(token)
	if err != nil {
		return nil, fmt.Errorf("failed to create bot: %w", err)
	}

	return &Bot{
		api:    api,
		store:  store,
		lookup: newTelegramLookup(api),
		logger: logger,
	}, nil
}

func (b *Bot) Start() error {
	u := tgbotapi.NewUpdate(0)
	u.Timeout = 60

	updates := b.api.GetUpdatesChan(u)

	for update := range updates {
		if update.Message == nil {
			continue
		}

		go b.handleMessage(update.Message)
	}

	return nil
}

func (b *Bot) handleMessage(message *tgbotapi.Message) {
	if !message.IsCommand() {
		return
	}

	switch message.Command() {
	case "start":
		b.handleStart(message)
	case "help":
		b.handleHelp(message)
	case "tag":
		b.handleTag(message)
	default:
		b.sendMessage(message.Chat.ID, "Unknown command. Use /help to see available commands.")
	}
}

func (b *Bot) handleTag(message *tgbotapi.Message) {
	cmd, err := parseTagCommand(message.CommandArguments())
	if err != nil {
		b.sendErrorMessage(message.Chat.ID, err.Error())
		return
	}

	guildID := guildScope(message)
	requester := message.From.ID

	switch cmd.action {
	case actionInvoke:
		tag, err := b.store.IncrementUse(guildID, cmd.name)
		if err != nil {
			b.sendErrorMessage(message.Chat.ID, userMessage(err))
			return
		}
		b.sendMessage(message.Chat.ID, tag.Content)

	case actionCreate:
		if _, err := b.store.Create(guildID, cmd.name, cmd.content, requester); err != nil {
			b.sendErrorMessage(message.Chat.ID, userMessage(err))
			return
		}
		b.sendMessage(message.Chat.ID, fmt.Sprintf("Tag %q successfully created.", cmd.name))

	case actionInfo:
		tag, err := b.store.Get(guildID, cmd.name)
		if err != nil {
			b.sendErrorMessage(message.Chat.ID, userMessage(err))
			return
		}
		b.sendMessage(message.Chat.ID, b.renderTagInfo(message.Chat.ID, tag))

	case actionList:
		names := b.store.List(guildID)
		if len(names) == 0 {
			b.sendMessage(message.Chat.ID, "No tags available.")
			return
		}
		b.sendMessage(message.Chat.ID, "Available tags: "+strings.Join(names, ", "))

	case actionEdit:
		if _, err := b.store.Edit(guildID, cmd.name, cmd.content, requester); err != nil {
			b.sendErrorMessage(message.Chat.ID, userMessage(err))
			return
		}
		b.sendMessage(message.Chat.ID, fmt.Sprintf("Tag %q successfully updated.", cmd.name))

	case actionDelete:
		if err := b.store.Delete(guildID, cmd.name, requester); err != nil {
			b.sendErrorMessage(message.Chat.ID, userMessage(err))
			return
		}
		b.sendMessage(message.Chat.ID, fmt.Sprintf("Tag %q successfully deleted.", cmd.name))
	}
}

func (b *Bot) handleStart(message *tgbotapi.Message) {
	welcome := `Welcome to TagBot! 🏷
I keep named text snippets ("tags") you can recall in any chat.

Tags created in a group belong to that group; tags created in a private
chat are generic and visible everywhere.
Use /help to see all available commands.`

	b.sendMessage(message.Chat.ID, welcome)
}

func (b *Bot) handleHelp(message *tgbotapi.Message) {
	help := `Available commands:
/start - Start the bot
/help - Show this help message
/tag <name> - Recall a tag by name
/tag create <name> <content> - Create a new tag
/tag info <name> - Show a tag's owner, uses and age
/tag list - List the tags visible in this chat
/tag edit <name> <content> - Replace a tag's content (owner only)
/tag delete <name> - Delete a tag (owner only)`

	b.sendMessage(message.Chat.ID, help)
}

// renderTagInfo builds the info reply. Owner resolution is best-effort: on
// lookup failure the numeric id is shown instead.
func (b *Bot) renderTagInfo(chatID int64, tag models.Tag) string {
	owner := strconv.FormatInt(tag.OwnerID, 10)
	if info, err := b.lookup.Lookup(chatID, tag.OwnerID); err == nil {
		owner = info.Name
		if info.Username != "" {
			owner = fmt.Sprintf("%s (@%s)", owner, info.Username)
		}
	} else {
		b.logger.Warn("Failed to look up tag owner",
			zap.Error(err),
			zap.Int64("owner_id", tag.OwnerID))
	}

	scope := "Generic"
	if !tag.IsGeneric() {
		scope = "Group-specific"
	}

	return fmt.Sprintf("%s\nOwner: %s\nUses: %d\nCreated: %s\nScope: %s",
		tag.Name, owner, tag.Uses, tag.CreatedAt.Format(time.RFC1123), scope)
}

// guildScope maps the chat to a tag namespace: group chats get their own,
// private chats see only generic tags.
func guildScope(message *tgbotapi.Message) string {
	if message.Chat.IsPrivate() {
		return ""
	}
	return strconv.FormatInt(message.Chat.ID, 10)
}

func (b *Bot) sendMessage(chatID int64, text string) {
	msg := tgbotapi.NewMessage(chatID, text)
	if _, err := b.api.Send(msg); err != nil {
		b.logger.Error("Failed to send message",
			zap.Error(err),
			zap.Int64("chat_id", chatID))
	}
}

func (b *Bot) sendErrorMessage(chatID int64, text string) {
	msg := tgbotapi.NewMessage(chatID, "⚠️ "+text)
	if _, err := b.api.Send(msg); err != nil {
		b.logger.Error("Failed to send error message",
			zap.Error(err),
			zap.Int64("chat_id", chatID))
	}
}
