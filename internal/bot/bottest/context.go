// Package bottest provides an in-memory telebot.Context for handler tests.
package bottest

import (
	"strings"
	"sync"

	telebot "gopkg.in/telebot.v3"
)

// Output kinds recorded by Context.
const (
	KindSend        = "send"
	KindEdit        = "edit"
	KindEditCaption = "edit_caption"
)

// Output is one message the handler sent or edited.
type Output struct {
	Kind string
	Text string
	Opts []interface{}
}

// Markup returns the reply markup passed with the output, if any.
func (o Output) Markup() *telebot.ReplyMarkup {
	for _, opt := range o.Opts {
		if m, ok := opt.(*telebot.ReplyMarkup); ok {
			return m
		}
	}
	return nil
}

// Context implements the part of telebot.Context the bot uses. Calls to any other
// method panic through the nil embedded interface.
type Context struct {
	telebot.Context

	UpdateID int
	User     *telebot.User
	Msg      *telebot.Message
	Cb       *telebot.Callback

	// SendErr and EditErr are returned from Send and Edit when set.
	SendErr error
	EditErr error

	mu        sync.Mutex
	outputs   []Output
	responses []*telebot.CallbackResponse
	store     map[string]interface{}
}

// NewMessage builds a context for a text message from userID.
func NewMessage(userID int64, text string) *Context {
	user := &telebot.User{ID: userID, FirstName: "user", LanguageCode: "en"}
	msg := &telebot.Message{
		ID:     int(userID),
		Sender: user,
		Chat:   &telebot.Chat{ID: userID},
		Text:   text,
	}
	if strings.HasPrefix(text, "/") {
		if _, payload, ok := strings.Cut(text, " "); ok {
			msg.Payload = strings.TrimSpace(payload)
		}
	}
	return &Context{User: user, Msg: msg}
}

// NewPhoto builds a context for a photo message from userID.
func NewPhoto(userID int64, fileID string) *Context {
	c := NewMessage(userID, "")
	c.Msg.Photo = &telebot.Photo{File: telebot.File{FileID: fileID}}
	return c
}

// NewCallback builds a context for an inline button press on a text message.
func NewCallback(userID int64, data string) *Context {
	user := &telebot.User{ID: userID, FirstName: "user", LanguageCode: "en"}
	msg := &telebot.Message{ID: 1, Chat: &telebot.Chat{ID: userID}, Text: "previous"}
	return &Context{
		User: user,
		Msg:  msg,
		Cb:   &telebot.Callback{ID: "cb-" + data, Sender: user, Message: msg, Data: data},
	}
}

// WithLanguage sets the Telegram client language of the sender.
func (c *Context) WithLanguage(code string) *Context {
	c.User.LanguageCode = code
	return c
}

func (c *Context) Update() telebot.Update {
	return telebot.Update{ID: c.UpdateID, Message: c.Msg, Callback: c.Cb}
}

func (c *Context) Sender() *telebot.User {
	return c.User
}

func (c *Context) Chat() *telebot.Chat {
	if c.Msg != nil {
		return c.Msg.Chat
	}
	return nil
}

func (c *Context) Message() *telebot.Message {
	return c.Msg
}

func (c *Context) Callback() *telebot.Callback {
	return c.Cb
}

func (c *Context) Text() string {
	if c.Msg == nil {
		return ""
	}
	return c.Msg.Text
}

func (c *Context) Send(what interface{}, opts ...interface{}) error {
	c.record(KindSend, what, opts)
	return c.SendErr
}

func (c *Context) Edit(what interface{}, opts ...interface{}) error {
	c.record(KindEdit, what, opts)
	return c.EditErr
}

func (c *Context) EditCaption(caption string, opts ...interface{}) error {
	c.record(KindEditCaption, caption, opts)
	return c.EditErr
}

func (c *Context) Respond(resp ...*telebot.CallbackResponse) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if len(resp) == 0 {
		resp = []*telebot.CallbackResponse{{}}
	}
	c.responses = append(c.responses, resp...)
	return nil
}

func (c *Context) Set(key string, val interface{}) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.store == nil {
		c.store = make(map[string]interface{})
	}
	c.store[key] = val
}

func (c *Context) Get(key string) interface{} {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.store[key]
}

// Outputs returns everything sent or edited so far.
func (c *Context) Outputs() []Output {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]Output(nil), c.outputs...)
}

// Texts returns the texts of all outputs.
func (c *Context) Texts() []string {
	outputs := c.Outputs()
	texts := make([]string, 0, len(outputs))
	for _, o := range outputs {
		texts = append(texts, o.Text)
	}
	return texts
}

// Last returns the latest output, or a zero Output when nothing was sent.
func (c *Context) Last() Output {
	outputs := c.Outputs()
	if len(outputs) == 0 {
		return Output{}
	}
	return outputs[len(outputs)-1]
}

// Responses returns the callback answers.
func (c *Context) Responses() []*telebot.CallbackResponse {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]*telebot.CallbackResponse(nil), c.responses...)
}

// LastResponse returns the latest callback answer, or nil.
func (c *Context) LastResponse() *telebot.CallbackResponse {
	responses := c.Responses()
	if len(responses) == 0 {
		return nil
	}
	return responses[len(responses)-1]
}

func (c *Context) record(kind string, what interface{}, opts []interface{}) {
	var text string
	switch v := what.(type) {
	case string:
		text = v
	case *telebot.Photo:
		text = v.Caption
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	c.outputs = append(c.outputs, Output{Kind: kind, Text: text, Opts: opts})
}
