package models

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/sudarshan/carebuddy/server/auth"
)

func TestCreateUserHashesPassword(t *testing.T) {
	InitializeTestDb()

	createTestUser(t, "ama@example.com")

	passwordHash, err := FindUserPassword("ama@example.com")
	assert.NoError(t, err)
	assert.NotEqual(t, "super-secret-1", passwordHash)
	assert.True(t, auth.CheckPasswordHash("super-secret-1", passwordHash))
}

func TestFindUserByNeverLoadsPassword(t *testing.T) {
	InitializeTestDb()

	created := createTestUser(t, "ama@example.com")

	user, err := FindUserBy("email", "ama@example.com")
	assert.NoError(t, err)
	assert.Equal(t, created.ID, user.ID)
	assert.Empty(t, user.Password)
}

func TestUserUpdateRehashesPassword(t *testing.T) {
	InitializeTestDb()

	user := createTestUser(t, "ama@example.com")

	assert.NoError(t, user.Update(map[string]interface{}{"password": "next-secret-2"}))

	passwordHash, err := FindUserPassword("ama@example.com")
	assert.NoError(t, err)
	assert.True(t, auth.CheckPasswordHash("next-secret-2", passwordHash))
	assert.False(t, auth.CheckPasswordHash("super-secret-1", passwordHash))
}

func TestReplaceContactsPreservesOrder(t *testing.T) {
	InitializeTestDb()

	user := createTestUser(t, "ama@example.com")

	assert.NoError(t, user.ReplaceContacts([]Contact{
		{Name: "Kofi", Email: "kofi@example.com"},
		{Name: "Esi", PhoneNumber: "+14155550100"},
	}))

	assert.NoError(t, user.ReplaceContacts([]Contact{
		{Name: "Yaw", Email: "yaw@example.com"},
		{Name: "Kofi", Email: "kofi@example.com"},
	}))

	assert.NoError(t, user.LoadContacts())
	assert.Len(t, user.Contacts, 2)
	assert.Equal(t, "Yaw", user.Contacts[0].Name)
	assert.Equal(t, "Kofi", user.Contacts[1].Name)
}

func TestDisplayName(t *testing.T) {
	user := &User{FirstName: "Ama", LastName: "Mensah"}
	assert.Equal(t, "Ama Mensah", user.DisplayName())

	user = &User{FirstName: "Ama"}
	assert.Equal(t, "Ama", user.DisplayName())
}
