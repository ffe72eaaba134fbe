package types

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPendingUserKeepsUnknownFieldsVerbatim(t *testing.T) {
	const record = `{"username":"ann","email":"a@x.com","age":41,"tags":["a","b"],"nested":{"k":true},"id":1717171717171,"submittedAt":"2024-05-31T16:08:37.171Z"}`

	var user PendingUser
	require.NoError(t, json.Unmarshal([]byte(record), &user))

	assert.Equal(t, int64(1717171717171), user.ID)
	assert.Equal(t, time.Date(2024, 5, 31, 16, 8, 37, 171_000_000, time.UTC), user.SubmittedAt)
	assert.JSONEq(t, `41`, string(user.Profile["age"]))
	assert.JSONEq(t, `{"k":true}`, string(user.Profile["nested"]))

	out, err := json.Marshal(user)
	require.NoError(t, err)
	assert.JSONEq(t, record, string(out))
}

func TestPendingUserAcceptsStringIDs(t *testing.T) {
	var user PendingUser
	require.NoError(t, json.Unmarshal([]byte(`{"username":"ann","id":"42"}`), &user))
	assert.Equal(t, int64(42), user.ID)
	assert.True(t, user.SubmittedAt.IsZero())

	require.NoError(t, json.Unmarshal([]byte(`{"username":"bob","id":"forty-two","submittedAt":"Tuesday"}`), &user))
	assert.Zero(t, user.ID)
	assert.True(t, user.HasRawID())
	assert.True(t, user.SubmittedAt.IsZero())

	out, err := json.Marshal(user)
	require.NoError(t, err)
	assert.JSONEq(t, `{"username":"bob","id":"forty-two","submittedAt":"Tuesday"}`, string(out))
}

func TestUnparseableFieldsAreKeptVerbatim(t *testing.T) {
	cases := []struct {
		name   string
		record string
	}{
		{"null id", `{"username":"ann","id":null,"submittedAt":"2024-05-31T16:08:37.171Z"}`},
		{"fractional id", `{"username":"ann","id":1.5,"submittedAt":"2024-05-31T16:08:37.171Z"}`},
		{"object id", `{"username":"ann","id":{"n":1},"submittedAt":"2024-05-31T16:08:37.171Z"}`},
		{"free-form submittedAt", `{"username":"ann","id":3,"submittedAt":"Fri May 31 2024"}`},
		{"numeric submittedAt", `{"username":"ann","id":3,"submittedAt":1717171717171}`},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			var user PendingUser
			require.NoError(t, json.Unmarshal([]byte(tc.record), &user))
			assert.Equal(t, "ann", user.Profile.Username())

			out, err := json.Marshal(user)
			require.NoError(t, err)
			assert.JSONEq(t, tc.record, string(out))
		})
	}

	var active ActiveUser
	require.NoError(t, json.Unmarshal([]byte(`{"username":"old","timestamp":"Mon Jun 02 2025"}`), &active))
	assert.True(t, active.Timestamp.IsZero())
	out, err := json.Marshal(active)
	require.NoError(t, err)
	assert.JSONEq(t, `{"username":"old","timestamp":"Mon Jun 02 2025"}`, string(out))
}

func TestWholeNumber(t *testing.T) {
	for input, want := range map[string]int64{"42": 42, "1e3": 1000, "4.2e1": 42, "-7": -7} {
		got, err := WholeNumber(json.Number(input))
		require.NoError(t, err, input)
		assert.Equal(t, want, got, input)
	}
	for _, input := range []string{"1.5", "1e300", "", "abc"} {
		_, err := WholeNumber(json.Number(input))
		assert.Error(t, err, input)
	}
}

func TestActiveUserFlattensTimestamp(t *testing.T) {
	user := ActiveUser{
		Timestamp: time.Date(2025, 1, 2, 3, 4, 5, 600_000_000, time.FixedZone("CET", 3600)),
		Profile:   Profile{"username": json.RawMessage(`"ann"`)},
	}

	out, err := json.Marshal(user)
	require.NoError(t, err)
	assert.JSONEq(t, `{"username":"ann","timestamp":"2025-01-02T02:04:05.600Z"}`, string(out))

	var decoded ActiveUser
	require.NoError(t, json.Unmarshal(out, &decoded))
	assert.True(t, user.Timestamp.Equal(decoded.Timestamp))
	assert.NotContains(t, decoded.Profile, FieldTimestamp)
}

func TestHasDuplicate(t *testing.T) {
	doc := NewDocument()
	doc.AddPending(Profile{"username": json.RawMessage(`"ann"`), "email": json.RawMessage(`"a@x.com"`)}, 1, time.Now())
	doc.Active = append(doc.Active, ActiveUser{Profile: Profile{"username": json.RawMessage(`"old"`)}})

	cases := []struct {
		name    string
		profile Profile
		want    bool
	}{
		{"same username", Profile{"username": json.RawMessage(`"ann"`), "email": json.RawMessage(`"b@y.com"`)}, true},
		{"same email", Profile{"username": json.RawMessage(`"bob"`), "email": json.RawMessage(`"a@x.com"`)}, true},
		{"escaped form of same username", Profile{"username": json.RawMessage(`"\u0061nn"`), "email": json.RawMessage(`"c@z.com"`)}, true},
		{"active username", Profile{"username": json.RawMessage(`"old"`), "email": json.RawMessage(`"c@z.com"`)}, true},
		{"different case", Profile{"username": json.RawMessage(`"ANN"`), "email": json.RawMessage(`"A@X.COM"`)}, false},
		{"neither matches", Profile{"username": json.RawMessage(`"bob"`), "email": json.RawMessage(`"b@y.com"`)}, false},
		{"missing email does not match missing email", Profile{"username": json.RawMessage(`"zed"`)}, false},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, doc.HasDuplicate(tc.profile))
		})
	}
}

func TestPromoteStripsSensitiveAndBookkeeping(t *testing.T) {
	doc := NewDocument()
	profile := Profile{
		"username":    json.RawMessage(`"ann"`),
		"rawPassword": json.RawMessage(`"hunter2"`),
		"timestamp":   json.RawMessage(`"forged"`),
	}
	doc.AddPending(profile, 7, time.Now())
	doc.AddPending(Profile{"username": json.RawMessage(`"bob"`)}, 8, time.Now())

	approvedAt := time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC)
	active := doc.Promote(doc.PendingIndex(7), DefaultSchema(), approvedAt)

	assert.Equal(t, Profile{"username": json.RawMessage(`"ann"`)}, active.Profile)
	assert.Equal(t, approvedAt, active.Timestamp)
	require.Len(t, doc.Pending, 1)
	assert.Equal(t, int64(8), doc.Pending[0].ID)
	require.Len(t, doc.Active, 1)
	assert.Contains(t, profile, "rawPassword", "the source profile is not mutated")
}

func TestSchemaMissing(t *testing.T) {
	schema := DefaultSchema()
	assert.Empty(t, schema.Missing(Profile{"username": json.RawMessage(`"a"`), "email": json.RawMessage(`"b"`)}))
	assert.Equal(t, []string{"username", "email"}, schema.Missing(Profile{"email": json.RawMessage(`null`)}))
}
