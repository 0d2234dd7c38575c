package http

import (
	"encoding/json"
	"strings"

	"github.com/samber/lo"

	"github.com/vovakirdan/wirechat-channels/internal/core"
	"github.com/vovakirdan/wirechat-channels/internal/proto"
)

// inboundToCommand maps every frame type except hello, which needs the
// auth service. A *proto.Error is a client mistake; an error is a broken frame.
func inboundToCommand(inbound proto.Inbound) (*core.Command, *proto.Error, error) {
	switch inbound.Type {
	case proto.InboundTypeJoin, proto.InboundTypeLeave, proto.InboundTypeCreateChannel:
		var data proto.ChannelData
		if err := json.Unmarshal(inbound.Data, &data); err != nil {
			return nil, nil, err
		}
		if strings.TrimSpace(data.Channel) == "" {
			return nil, &proto.Error{Code: core.ErrCodeBadRequest, Msg: "channel is required"}, nil
		}
		kind := map[string]core.CommandKind{
			proto.InboundTypeJoin:          core.CommandJoinChannel,
			proto.InboundTypeLeave:         core.CommandLeaveChannel,
			proto.InboundTypeCreateChannel: core.CommandCreateChannel,
		}[inbound.Type]
		return &core.Command{Kind: kind, Channel: data.Channel}, nil, nil
	case proto.InboundTypeMsg:
		var msg proto.MsgData
		if err := json.Unmarshal(inbound.Data, &msg); err != nil {
			return nil, nil, err
		}
		if msg.Channel == "" {
			return nil, &proto.Error{Code: core.ErrCodeBadRequest, Msg: "channel is required"}, nil
		}
		return &core.Command{
			Kind:    core.CommandSendMessage,
			Channel: msg.Channel,
			Text:    msg.Text,
		}, nil, nil
	default:
		return nil, &proto.Error{Code: core.ErrCodeBadRequest, Msg: "unknown message type"}, nil
	}
}

func messageData(msg core.Message) proto.EventMessageData {
	return proto.EventMessageData{
		ID:      msg.ID,
		Channel: msg.Channel,
		User:    msg.Author,
		Text:    msg.Text,
		TS:      msg.CreatedAt.UnixMilli(),
	}
}

func messagesData(messages []core.Message) []proto.EventMessageData {
	return lo.Map(messages, func(m core.Message, _ int) proto.EventMessageData { return messageData(m) })
}

func eventOutbound(name string, data any) proto.Outbound {
	return proto.Outbound{Type: proto.OutboundTypeEvent, Event: name, Data: data}
}

func errorOutbound(code, msg string) proto.Outbound {
	return proto.Outbound{Type: proto.OutboundTypeError, Error: &proto.Error{Code: code, Msg: msg}}
}

func outboundFromEvent(event *core.Event) proto.Outbound {
	switch event.Kind {
	case core.EventChannelList:
		return eventOutbound(proto.EventChannelList, proto.EventChannelListData{Channels: event.Channels})
	case core.EventOnlineUsers:
		return eventOutbound(proto.EventOnlineUsers, proto.EventOnlineUsersData{Users: event.Users})
	case core.EventMessage:
		return eventOutbound(proto.EventMessage, messageData(event.Message))
	case core.EventChannelCreated:
		return eventOutbound(proto.EventChannelCreated, proto.EventChannelCreatedData{Channel: event.Channel})
	case core.EventHistory:
		return eventOutbound(proto.EventHistory, proto.EventHistoryData{
			Channel:  event.Channel,
			Messages: messagesData(event.Messages),
		})
	case core.EventError:
		if event.Error == nil {
			return errorOutbound(core.ErrCodeInternal, "unknown error")
		}
		return errorOutbound(event.Error.Code, event.Error.Message)
	default:
		return proto.Outbound{Type: proto.OutboundTypeEvent}
	}
}
