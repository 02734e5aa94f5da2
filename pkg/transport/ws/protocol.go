package ws

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/modoterra/adminlog/pkg/core"
)

// Commands sent by the admin client. They carry no arguments.
const (
	CmdGetModuleInfo = "getModuleInfo"
	CmdRefreshLog    = "refreshLog"
)

// Prefixes of the replies sent by the module backend.
const (
	PrefixModuleInfo = "moduleInfo "
	PrefixLogData    = "logData "
)

// Message is a parsed inbound text frame. It is one of ModuleInfoMsg,
// LogDataMsg, UnknownMsg or MalformedMsg.
type Message interface {
	isMessage()
}

// ModuleInfoMsg carries the module's identity.
type ModuleInfoMsg struct {
	Info core.ModuleInfo
}

// LogDataMsg carries a full log snapshot.
type LogDataMsg struct {
	Records []core.LogRecord
}

// UnknownMsg is any text that matches neither known prefix.
type UnknownMsg struct {
	Text string
}

// MalformedMsg matched a known prefix but its JSON body could not be used.
type MalformedMsg struct {
	Prefix string
	Err    error
}

func (ModuleInfoMsg) isMessage() {}
func (LogDataMsg) isMessage()    {}
func (UnknownMsg) isMessage()    {}
func (MalformedMsg) isMessage()  {}

// Parse classifies an inbound text frame. Recognition is by literal prefix;
// the JSON body starts at the first '{' (moduleInfo) or '[' (logData).
func Parse(text string) Message {
	switch {
	case strings.HasPrefix(text, PrefixModuleInfo):
		body, err := jsonBody(text, '{')
		if err != nil {
			return MalformedMsg{Prefix: PrefixModuleInfo, Err: err}
		}
		var info core.ModuleInfo
		if err := json.Unmarshal([]byte(body), &info); err != nil {
			return MalformedMsg{Prefix: PrefixModuleInfo, Err: fmt.Errorf("decode module info: %w", err)}
		}
		return ModuleInfoMsg{Info: info}

	case strings.HasPrefix(text, PrefixLogData):
		body, err := jsonBody(text, '[')
		if err != nil {
			return MalformedMsg{Prefix: PrefixLogData, Err: err}
		}
		var records []core.LogRecord
		if err := json.Unmarshal([]byte(body), &records); err != nil {
			return MalformedMsg{Prefix: PrefixLogData, Err: fmt.Errorf("decode log data: %w", err)}
		}
		return LogDataMsg{Records: records}

	default:
		return UnknownMsg{Text: text}
	}
}

func jsonBody(text string, open byte) (string, error) {
	idx := strings.IndexByte(text, open)
	if idx <= 0 {
		return "", fmt.Errorf("no %q in message", open)
	}
	return text[idx:], nil
}

// FormatModuleInfo builds a moduleInfo reply.
func FormatModuleInfo(info core.ModuleInfo) (string, error) {
	b, err := json.Marshal(info)
	if err != nil {
		return "", err
	}
	return PrefixModuleInfo + string(b), nil
}

// FormatLogData builds a logData reply. A nil slice is sent as [].
func FormatLogData(records []core.LogRecord) (string, error) {
	if records == nil {
		records = []core.LogRecord{}
	}
	b, err := json.Marshal(records)
	if err != nil {
		return "", err
	}
	return PrefixLogData + string(b), nil
}
