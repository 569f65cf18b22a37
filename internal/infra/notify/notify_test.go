package notify

import (
	"context"
	"errors"
	"testing"

	"github.com/Spok95/itasset/internal/infra/logger"
	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeAPI struct {
	sent []int64
	fail map[int64]bool
}

func (f *fakeAPI) Send(c tgbotapi.Chattable) (tgbotapi.Message, error) {
	msg := c.(tgbotapi.MessageConfig)
	if f.fail[msg.ChatID] {
		return tgbotapi.Message{}, errors.New("forbidden")
	}
	f.sent = append(f.sent, msg.ChatID)
	return tgbotapi.Message{}, nil
}

func TestTelegram_SendsOncePerChat(t *testing.T) {
	api := &fakeAPI{}
	n := newTelegram(api, []int64{10, 0, 20, 10}, logger.Discard())

	require.NoError(t, n.Notify(context.Background(), "hi"))
	assert.Equal(t, []int64{10, 20}, api.sent)
}

func TestTelegram_ContinuesAfterFailure(t *testing.T) {
	api := &fakeAPI{fail: map[int64]bool{10: true}}
	n := newTelegram(api, []int64{10, 20}, logger.Discard())

	err := n.Notify(context.Background(), "hi")
	assert.EqualError(t, err, "forbidden")
	assert.Equal(t, []int64{20}, api.sent)
}
