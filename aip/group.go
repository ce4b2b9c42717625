package aip

import (
	"errors"
	"fmt"
)

// =============================================================================
// GROUP TYPES
// =============================================================================

// ACSObject describes a group participant.
type ACSObject struct {
	AIC    string         `json:"aic"`
	Skills []string       `json:"skills,omitempty"`
	Extra  map[string]any `json:"extra"`
}

// GroupInfo lists the members of a group.
type GroupInfo struct {
	GroupID  string      `json:"groupId"`
	Leader   ACSObject   `json:"leader"`
	Partners []ACSObject `json:"partners"`
}

// RabbitMQServerConfig locates the broker a group communicates through.
type RabbitMQServerConfig struct {
	Host        string `json:"host"`
	Port        int    `json:"port"`
	VHost       string `json:"vhost"`
	AccessToken string `json:"accessToken"`
}

// AMQPConfig describes the exchange a partner binds to.
type AMQPConfig struct {
	Exchange     string `json:"exchange"`
	ExchangeType string `json:"exchangeType"`
	RoutingKey   string `json:"routingKey"`
}

// GroupJoinParams are the params of the group method.
type GroupJoinParams struct {
	Protocol string               `json:"protocol"`
	Group    GroupInfo            `json:"group"`
	Server   RabbitMQServerConfig `json:"server"`
	AMQP     AMQPConfig           `json:"amqp"`
}

// GroupJoinResult is the result of the group method.
type GroupJoinResult struct {
	ConnectionName string `json:"connectionName"`
	VHost          string `json:"vhost"`
	NodeName       string `json:"nodeName"`
	QueueName      string `json:"queueName"`
	ProcessID      string `json:"processId,omitempty"`
}

// GroupJoinErrorData is the data of an error returned by the group method.
type GroupJoinErrorData struct {
	ErrorType string `json:"errorType"`
	Details   any    `json:"details,omitempty"`
}

// GroupMgmtCommand controls a member's participation in a group.
type GroupMgmtCommand string

const (
	GroupMgmtGetStatus  GroupMgmtCommand = "get-status"
	GroupMgmtLeaveGroup GroupMgmtCommand = "leave-group"
	GroupMgmtMute       GroupMgmtCommand = "mute"
	GroupMgmtUnmute     GroupMgmtCommand = "unmute"
)

// IsValid returns true if the command is known.
func (c GroupMgmtCommand) IsValid() bool {
	switch c {
	case GroupMgmtGetStatus, GroupMgmtLeaveGroup, GroupMgmtMute, GroupMgmtUnmute:
		return true
	default:
		return false
	}
}

// GroupMemberStatus reports a member's connection state.
type GroupMemberStatus struct {
	Connected bool `json:"connected"`
	Muted     bool `json:"muted"`
}

// GroupMgmtMessage is a message with type "group-mgmt-message" carrying a management command or status.
type GroupMgmtMessage struct {
	Message
	GroupMgmtCommand  GroupMgmtCommand   `json:"groupMgmtCommand,omitempty"`
	GroupMemberStatus *GroupMemberStatus `json:"groupMemberStatus,omitempty"`
}

// Validate validates the group join params.
func (p *GroupJoinParams) Validate() error {
	if p.Group.GroupID == "" {
		return errors.New("group.groupId is required")
	}
	if p.Group.Leader.AIC == "" {
		return errors.New("group.leader.aic is required")
	}
	if p.Server.Host == "" {
		return errors.New("server.host is required")
	}
	if p.Server.Port <= 0 {
		return fmt.Errorf("server.port must be positive, got %d", p.Server.Port)
	}
	if p.AMQP.Exchange == "" {
		return errors.New("amqp.exchange is required")
	}
	return nil
}

// Validate validates a group management message.
func (m *GroupMgmtMessage) Validate() error {
	if m.Type != TypeGroupMgmtMessage {
		return fmt.Errorf("group management message type must be %q, got %q", TypeGroupMgmtMessage, m.Type)
	}
	if m.GroupMgmtCommand != "" && !m.GroupMgmtCommand.IsValid() {
		return fmt.Errorf("invalid groupMgmtCommand %q", m.GroupMgmtCommand)
	}
	inner := m.Message
	inner.Type = TypeMessage
	return inner.Validate()
}
