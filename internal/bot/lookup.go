package bot

import (
	"strings"
	"sync"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
)

// UserInfo is the displayable identity of a tag owner.
type UserInfo struct {
	Name     string
	Username string
}

// UserLookup resolves a user id to display information. Lookups may fail;
// callers degrade to rendering the numeric id.
type UserLookup interface {
	Lookup(chatID, userID int64) (UserInfo, error)
}

// telegramLookup resolves users through the bot API and caches results so
// repeated tag info requests do not hit the network.
type telegramLookup struct {
	api *tgbotapi.BotAPI

	mu    sync.Mutex
	cache map[int64]UserInfo
}

func newTelegramLookup(api *tgbotapi.BotAPI) *telegramLookup {
	return &telegramLookup{
		api:   api,
		cache: make(map[int64]UserInfo),
	}
}

func (l *telegramLookup) Lookup(chatID, userID int64) (UserInfo, error) {
	l.mu.Lock()
	if info, ok := l.cache[userID]; ok {
		l.mu.Unlock()
		return info, nil
	}
	l.mu.Unlock()

	member, err := l.api.GetChatMember(tgbotapi.GetChatMemberConfig{
		ChatConfigWithUser: tgbotapi.ChatConfigWithUser{
			ChatID: chatID,
			UserID: userID,
		},
	})
	if err != nil {
		return UserInfo{}, err
	}

	info := UserInfo{
		Name:     strings.TrimSpace(member.User.FirstName + " " + member.User.LastName),
		Username: member.User.UserName,
	}

	l.mu.Lock()
	l.cache[userID] = info
	l.mu.Unlock()

	return info, nil
}
