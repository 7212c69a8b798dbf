package protocol

import (
	"encoding/json"
	"fmt"

	"github.com/deployment-bingo/bingosync/internal/model"
)

// FrameType discriminates the frame envelope.
type FrameType string

const (
	// client -> server
	FrameSubscribe FrameType = "subscribe"
	FrameCall      FrameType = "call"

	// server -> client
	FrameIdentity   FrameType = "identity"
	FrameTx         FrameType = "tx"
	FrameCallResult FrameType = "call_result"
)

// Frame is the envelope for every message on the connection. Exactly one
// payload field is set, matching Type.
type Frame struct {
	Type FrameType `json:"type"`

	Subscribe  *SubscribeFrame  `json:"subscribe,omitempty"`
	Call       *CallFrame       `json:"call,omitempty"`
	Identity   *IdentityFrame   `json:"identity,omitempty"`
	Tx         *TxFrame         `json:"tx,omitempty"`
	CallResult *CallResultFrame `json:"call_result,omitempty"`
}

// SubscribeFrame replaces the connection's active query set.
type SubscribeFrame struct {
	Queries []Query `json:"queries"`
}

// CallFrame invokes a named remote call with positional arguments.
// RequestID is chosen by the client and echoed in the CallResultFrame,
// emulating request/response over the fire-and-forget call surface.
type CallFrame struct {
	RequestID string            `json:"request_id"`
	Name      string            `json:"name"`
	Args      []json.RawMessage `json:"args"`
}

// CallResultFrame reports completion of a call. Calls have no return
// value; Error carries the failure message when OK is false.
type CallResultFrame struct {
	RequestID string `json:"request_id"`
	OK        bool   `json:"ok"`
	Error     string `json:"error,omitempty"`
}

// IdentityFrame is sent once after connect with the identity assigned to
// the connection and a reconnect token to persist.
type IdentityFrame struct {
	Identity model.Identity `json:"identity"`
	Token    string         `json:"token"`
}

// TxFrame is an ordered batch of row changes. Order within and across
// frames is the per-collection delivery order; no ordering is implied
// across collections.
type TxFrame struct {
	Changes []RowChange `json:"changes"`
}

// Remote call names.
const (
	CallSetName            = "set_name"
	CallStartNewGame       = "start_new_game"
	CallJoinGame           = "join_game"
	CallSubmitNewBingoItem = "submit_new_bingo_item"
	CallDeleteBingoItem    = "delete_bingo_item"
	CallCastCheckOffVote   = "cast_check_off_vote"
	CallUsePlayerInvite    = "use_player_invite"
	CallCreatePlayer       = "create_player"
	CallSignIn             = "sign_in"
)

// EncodeArgs marshals positional call arguments.
func EncodeArgs(args ...any) ([]json.RawMessage, error) {
	out := make([]json.RawMessage, 0, len(args))
	for i, arg := range args {
		data, err := json.Marshal(arg)
		if err != nil {
			return nil, fmt.Errorf("encoding arg %d: %w", i, err)
		}
		out = append(out, data)
	}
	return out, nil
}

// DecodeArgs unmarshals positional call arguments into the given
// pointers, failing if the counts don't match.
func DecodeArgs(args []json.RawMessage, targets ...any) error {
	if len(args) != len(targets) {
		return fmt.Errorf("expected %d args, got %d", len(targets), len(args))
	}
	for i, target := range targets {
		if err := json.Unmarshal(args[i], target); err != nil {
			return fmt.Errorf("decoding arg %d: %w", i, err)
		}
	}
	return nil
}

// EncodeRow marshals a row for a RowChange.
func EncodeRow(row any) json.RawMessage {
	data, err := json.Marshal(row)
	if err != nil {
		// Rows are our own structs; failure here is a programming error.
		panic(fmt.Sprintf("encoding row: %v", err))
	}
	return data
}

// Insert builds an insert change for one row.
func Insert(c Collection, row any) RowChange {
	return RowChange{Collection: c, Op: OpInsert, Row: EncodeRow(row)}
}

// Update builds an update change carrying the old and new row.
func Update(c Collection, oldRow, newRow any) RowChange {
	return RowChange{Collection: c, Op: OpUpdate, Row: EncodeRow(newRow), OldRow: EncodeRow(oldRow)}
}

// Delete builds a delete change for one row.
func Delete(c Collection, row any) RowChange {
	return RowChange{Collection: c, Op: OpDelete, Row: EncodeRow(row)}
}
