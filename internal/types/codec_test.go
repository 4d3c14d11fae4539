package types

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/DoyleJ11/infect-client/internal/game"
)

func TestEncode_ClientFrames(t *testing.T) {
	cases := []struct {
		name    string
		typ     string
		payload any
		want    string
	}{
		{name: "join", typ: TypeJoin, payload: JoinRequest{UserID: "abc"}, want: `{"type":"join","data":{"userId":"abc"}}`},
		{name: "scan", typ: TypeScan, payload: ScanRequest{UserID: "abc", TargetID: "xyz"}, want: `{"type":"scan","data":{"userId":"abc","targetId":"xyz"}}`},
		{name: "leave", typ: TypeLeave, payload: LeaveRequest{UserID: "abc"}, want: `{"type":"leave","data":{"userId":"abc"}}`},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			b, err := Encode(tc.typ, tc.payload)
			require.NoError(t, err)
			assert.JSONEq(t, tc.want, string(b))
		})
	}
}

func TestEncode_Rejects(t *testing.T) {
	_, err := Encode("", JoinRequest{})
	assert.Error(t, err)

	_, err = Encode(TypeJoin, nil)
	assert.ErrorIs(t, err, ErrEmptyPayload)
}

func TestDecode_StateFrame(t *testing.T) {
	raw := `{"type":"state","data":{"gameId":1,"gameOver":true,"players":[{"userId":"abc","team":"zombies","score":3,"totalScore":10}]}}`

	env, err := DecodeEnvelope([]byte(raw))
	require.NoError(t, err)
	require.Equal(t, TypeState, env.Type)

	st, err := DecodePayload[State](env)
	require.NoError(t, err)
	assert.Equal(t, game.Snapshot{
		GameID:   1,
		GameOver: true,
		Players:  []game.PlayerRow{{UserID: "abc", Team: game.TeamZombies, Score: 3, TotalScore: 10}},
	}, st)
}

func TestDecode_BadFrames(t *testing.T) {
	_, err := DecodeEnvelope(nil)
	assert.ErrorIs(t, err, ErrEmptyFrame)

	_, err = DecodeEnvelope([]byte(`not json`))
	assert.Error(t, err)

	_, err = DecodeEnvelope([]byte(`{"data":{}}`))
	assert.Error(t, err)

	_, err = DecodePayload[Notification](Envelope{Type: TypeNotification})
	assert.ErrorIs(t, err, ErrEmptyPayload)
}
