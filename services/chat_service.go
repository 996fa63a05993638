package services

import (
	"lingo-server/stream"
	"lingo-server/utils/errors"
)

// ChatService issues chat-provider tokens for authenticated users.
type ChatService struct {
	chat stream.ChatProvider
}

func NewChatService(chat stream.ChatProvider) *ChatService {
	return &ChatService{chat: chat}
}

func (s *ChatService) GetStreamToken(userID string) (string, error) {
	token, err := s.chat.CreateToken(userID)
	if err != nil {
		return "", errors.ExternalProvider(err)
	}
	return token, nil
}
