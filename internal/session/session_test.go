package session

import (
	"context"
	"errors"
	"testing"

	"storefront/internal/models"
	"storefront/internal/pkg/i18n"
	"storefront/internal/pkg/logger"
	"storefront/internal/session/mocks"
	"storefront/internal/storage"
	storagemocks "storefront/internal/storage/mocks"
	"storefront/internal/transport"

	"github.com/golang/mock/gomock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var msgs = i18n.New("en")

func newStore(t *testing.T, db storage.Storage) (*Store, *mocks.MockUserAPI) {
	t.Helper()
	ctrl := gomock.NewController(t)
	api := mocks.NewMockUserAPI(ctrl)
	return New(context.Background(), api, db, msgs, logger.Nop()), api
}

func slot(t *testing.T, db storage.Storage, key string) (string, bool) {
	t.Helper()
	v, ok, err := db.Get(context.Background(), key)
	require.NoError(t, err)
	return v, ok
}

func TestLogin(t *testing.T) {
	ctx := context.Background()
	user := &models.UserProfile{ID: "7", Phone: "13800000000", Nickname: "Ann"}

	testCases := []struct {
		name     string
		setup    func(api *mocks.MockUserAPI)
		expected Result
		loggedIn bool
	}{
		{
			name: "success stores credential and profile",
			setup: func(api *mocks.MockUserAPI) {
				api.EXPECT().Login(gomock.Any(), "13800000000", "pw").
					Return(&models.AuthPayload{Token: "jwt", User: user}, nil)
			},
			expected: Result{Success: true},
			loggedIn: true,
		},
		{
			name: "business failure surfaces server message",
			setup: func(api *mocks.MockUserAPI) {
				api.EXPECT().Login(gomock.Any(), "13800000000", "pw").
					Return(nil, &transport.Error{Kind: transport.KindBusiness, Code: 1002, Message: "密码错误"})
			},
			expected: Result{Message: "密码错误"},
		},
		{
			name: "network failure uses localized fallback",
			setup: func(api *mocks.MockUserAPI) {
				api.EXPECT().Login(gomock.Any(), "13800000000", "pw").
					Return(nil, &transport.Error{Kind: transport.KindNetwork, Err: errors.New("dial")})
			},
			expected: Result{Message: msgs.Get(i18n.LoginFailed)},
		},
		{
			name: "missing token is a failure",
			setup: func(api *mocks.MockUserAPI) {
				api.EXPECT().Login(gomock.Any(), "13800000000", "pw").
					Return(&models.AuthPayload{}, nil)
			},
			expected: Result{Message: msgs.Get(i18n.LoginFailed)},
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			db := storage.NewMemory()
			s, api := newStore(t, db)
			tc.setup(api)

			assert.Equal(t, tc.expected, s.Login(ctx, "13800000000", "pw"))
			assert.Equal(t, tc.loggedIn, s.IsLoggedIn())

			token, ok := slot(t, db, storage.KeyToken)
			assert.Equal(t, tc.loggedIn, ok)
			if tc.loggedIn {
				assert.Equal(t, "jwt", token)
				assert.Equal(t, user, s.UserInfo())
				_, ok := slot(t, db, storage.KeyUserInfo)
				assert.True(t, ok)
			}
		})
	}
}

func TestRegisterAndSMSLogin(t *testing.T) {
	ctx := context.Background()
	db := storage.NewMemory()
	s, api := newStore(t, db)

	api.EXPECT().Register(gomock.Any(), "13800000001", "pw", "123456").
		Return(&models.AuthPayload{Token: "r1"}, nil)
	assert.True(t, s.Register(ctx, "13800000001", "pw", "123456").Success)
	assert.Equal(t, "r1", s.Token())
	assert.Nil(t, s.UserInfo())

	api.EXPECT().LoginBySMS(gomock.Any(), "13800000001", "000000").
		Return(nil, &transport.Error{Kind: transport.KindBusiness, Code: 1003, Message: "验证码错误"})
	res := s.LoginBySMS(ctx, "13800000001", "000000")
	assert.False(t, res.Success)
	assert.Equal(t, "验证码错误", res.Message)
	assert.Equal(t, "r1", s.Token())

	api.EXPECT().SendSMSCode(gomock.Any(), "13800000001").Return(nil)
	assert.Equal(t, Result{Success: true}, s.SendSMSCode(ctx, "13800000001"))
}

func TestSetTokenSurvivesReload(t *testing.T) {
	ctx := context.Background()
	db := storage.NewMemory()
	s, _ := newStore(t, db)

	require.NoError(t, s.SetToken(ctx, "x-credential"))

	reloaded, _ := newStore(t, db)
	assert.True(t, reloaded.IsLoggedIn())
	assert.Equal(t, "x-credential", reloaded.Token())

	require.NoError(t, reloaded.SetToken(ctx, ""))
	assert.False(t, reloaded.IsLoggedIn())
	_, ok := slot(t, db, storage.KeyToken)
	assert.False(t, ok)
}

func TestBlankCredentialIsAbsent(t *testing.T) {
	ctx := context.Background()
	db := storage.NewMemory()
	require.NoError(t, db.Set(ctx, storage.KeyToken, "   "))

	s, _ := newStore(t, db)
	assert.False(t, s.IsLoggedIn())
	assert.Empty(t, s.Token())
	_, ok := slot(t, db, storage.KeyToken)
	assert.False(t, ok)

	require.NoError(t, s.SetToken(ctx, " abc "))
	assert.Equal(t, "abc", s.Token())
	v, _ := slot(t, db, storage.KeyToken)
	assert.Equal(t, "abc", v)

	require.NoError(t, s.SetToken(ctx, "\t "))
	assert.False(t, s.IsLoggedIn())
	_, ok = slot(t, db, storage.KeyToken)
	assert.False(t, ok)
}

func TestSetUserInfo(t *testing.T) {
	ctx := context.Background()
	db := storage.NewMemory()
	s, _ := newStore(t, db)

	user := &models.UserProfile{ID: "1", Nickname: "Bo"}
	require.NoError(t, s.SetUserInfo(ctx, user))
	user.Nickname = "mutated"
	assert.Equal(t, "Bo", s.UserInfo().Nickname)

	reloaded, _ := newStore(t, db)
	assert.Equal(t, "Bo", reloaded.UserInfo().Nickname)

	require.NoError(t, reloaded.SetUserInfo(ctx, nil))
	assert.Nil(t, reloaded.UserInfo())
	_, ok := slot(t, db, storage.KeyUserInfo)
	assert.False(t, ok)
}

func TestCorruptProfileSlotIsDropped(t *testing.T) {
	ctx := context.Background()
	db := storage.NewMemory()
	require.NoError(t, db.Set(ctx, storage.KeyUserInfo, "{not json"))
	require.NoError(t, db.Set(ctx, storage.KeyToken, "t"))

	s, _ := newStore(t, db)
	assert.Nil(t, s.UserInfo())
	assert.True(t, s.IsLoggedIn())
	_, ok := slot(t, db, storage.KeyUserInfo)
	assert.False(t, ok)
}

func TestFetchUserInfo(t *testing.T) {
	ctx := context.Background()

	t.Run("no-op without credential or profile id", func(t *testing.T) {
		db := storage.NewMemory()
		s, _ := newStore(t, db)
		s.FetchUserInfo(ctx)

		require.NoError(t, s.SetToken(ctx, "t"))
		s.FetchUserInfo(ctx)

		require.NoError(t, s.SetUserInfo(ctx, &models.UserProfile{Nickname: "no id"}))
		s.FetchUserInfo(ctx)
	})

	t.Run("overwrites profile on success", func(t *testing.T) {
		db := storage.NewMemory()
		s, api := newStore(t, db)
		require.NoError(t, s.SetToken(ctx, "t"))
		require.NoError(t, s.SetUserInfo(ctx, &models.UserProfile{ID: "9", Nickname: "old"}))

		api.EXPECT().GetUser(gomock.Any(), "9").Return(&models.UserProfile{ID: "9", Nickname: "new"}, nil)
		s.FetchUserInfo(ctx)
		assert.Equal(t, "new", s.UserInfo().Nickname)
	})

	t.Run("swallows failure", func(t *testing.T) {
		db := storage.NewMemory()
		s, api := newStore(t, db)
		require.NoError(t, s.SetToken(ctx, "t"))
		require.NoError(t, s.SetUserInfo(ctx, &models.UserProfile{ID: "9", Nickname: "old"}))

		api.EXPECT().GetUser(gomock.Any(), "9").Return(nil, &transport.Error{Kind: transport.KindHTTP, Status: 500})
		s.FetchUserInfo(ctx)
		assert.Equal(t, "old", s.UserInfo().Nickname)
	})
}

func TestUpdateUserInfo(t *testing.T) {
	ctx := context.Background()
	db := storage.NewMemory()
	s, api := newStore(t, db)

	res := s.UpdateUserInfo(ctx, models.UpdateUserRequest{Nickname: "x"})
	assert.False(t, res.Success)

	require.NoError(t, s.SetToken(ctx, "t"))
	require.NoError(t, s.SetUserInfo(ctx, &models.UserProfile{ID: "3", Nickname: "old"}))

	gomock.InOrder(
		api.EXPECT().UpdateUser(gomock.Any(), "3", models.UpdateUserRequest{Nickname: "new"}).Return(nil, nil),
		api.EXPECT().GetUser(gomock.Any(), "3").Return(&models.UserProfile{ID: "3", Nickname: "new"}, nil),
	)
	assert.True(t, s.UpdateUserInfo(ctx, models.UpdateUserRequest{Nickname: "new"}).Success)
	assert.Equal(t, "new", s.UserInfo().Nickname)
}

func TestLogout(t *testing.T) {
	ctx := context.Background()

	t.Run("clears both copies even when the server call fails", func(t *testing.T) {
		db := storage.NewMemory()
		s, api := newStore(t, db)
		require.NoError(t, s.SetToken(ctx, "t"))
		require.NoError(t, s.SetUserInfo(ctx, &models.UserProfile{ID: "1"}))

		api.EXPECT().Logout(gomock.Any()).Return(&transport.Error{Kind: transport.KindNetwork})
		s.Logout(ctx)

		assert.False(t, s.IsLoggedIn())
		assert.Nil(t, s.UserInfo())
		_, ok := slot(t, db, storage.KeyToken)
		assert.False(t, ok)
		_, ok = slot(t, db, storage.KeyUserInfo)
		assert.False(t, ok)
	})

	t.Run("skips the server without credential", func(t *testing.T) {
		s, _ := newStore(t, storage.NewMemory())
		s.Logout(ctx)
		assert.False(t, s.IsLoggedIn())
	})
}

func TestExpireCredential(t *testing.T) {
	ctx := context.Background()
	db := storage.NewMemory()
	s, _ := newStore(t, db)
	require.NoError(t, s.SetToken(ctx, "t"))

	s.ExpireCredential(ctx)
	assert.False(t, s.IsLoggedIn())
}

func TestPersistFailureIsReported(t *testing.T) {
	ctx := context.Background()
	ctrl := gomock.NewController(t)
	db := storagemocks.NewMockStorage(ctrl)
	db.EXPECT().Get(gomock.Any(), gomock.Any()).Return("", false, nil).Times(2)
	s := New(ctx, mocks.NewMockUserAPI(ctrl), db, msgs, logger.Nop())

	db.EXPECT().Set(gomock.Any(), storage.KeyToken, "t").Return(errors.New("disk full"))
	err := s.SetToken(ctx, "t")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "disk full")
}
