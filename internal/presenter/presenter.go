package presenter

import (
	"encoding/base64"
	"strings"
)

// Presenter delivers formatted messages and board images without coupling
// to the command layer.
type Presenter struct {
	sendMessage func(channelID, message string) error
	sendImage   func(channelID, imageBase64 string) error
}

func NewPresenter(sendMessage func(channelID, message string) error, sendImage func(channelID, imageBase64 string) error) *Presenter {
	return &Presenter{sendMessage: sendMessage, sendImage: sendImage}
}

// Text sends a plain message.
func (p *Presenter) Text(channelID, message string) error {
	if p == nil || p.sendMessage == nil || strings.TrimSpace(message) == "" {
		return nil
	}
	return p.sendMessage(channelID, message)
}

// Board sends an optional caption followed by the rendered board image.
func (p *Presenter) Board(channelID, caption string, pngData []byte) error {
	if p == nil {
		return nil
	}
	if text := strings.TrimSpace(caption); text != "" && p.sendMessage != nil {
		if err := p.sendMessage(channelID, text); err != nil {
			return err
		}
	}
	if len(pngData) > 0 && p.sendImage != nil {
		encoded := base64.StdEncoding.EncodeToString(pngData)
		if err := p.sendImage(channelID, encoded); err != nil {
			return err
		}
	}
	return nil
}
