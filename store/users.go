package store

import (
	"errors"
	"strconv"
	"sync"

	"github.com/nrenier/ICorNet-sub000/config"
	"github.com/nrenier/ICorNet-sub000/model"
)

var (
	ErrUserExists      = errors.New("username already taken")
	ErrInvalidPassword = errors.New("invalid username or password")
)

type userRecord struct {
	user     model.User
	password string
}

// UserStore keeps the accounts of the development backend: the ones from
// config plus any registered at runtime.
type UserStore struct {
	mu     sync.RWMutex
	users  map[string]*userRecord
	nextID int
}

func NewUserStore(seed []config.User) *UserStore {
	s := &UserStore{users: make(map[string]*userRecord)}
	for _, u := range seed {
		s.nextID++
		id := u.ID
		if id == "" {
			id = strconv.Itoa(s.nextID)
		}
		s.users[u.Username] = &userRecord{
			user:     model.User{ID: id, Username: u.Username, Email: u.Email},
			password: u.Password,
		}
	}
	return s
}

// Authenticate checks credentials and returns the user.
func (s *UserStore) Authenticate(username, password string) (model.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	rec, ok := s.users[username]
	if !ok || rec.password != password {
		return model.User{}, ErrInvalidPassword
	}
	return rec.user, nil
}

// Register adds a new account.
func (s *UserStore) Register(req model.RegisterRequest) (model.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.users[req.Username]; ok {
		return model.User{}, ErrUserExists
	}
	s.nextID++
	u := model.User{
		ID:        strconv.Itoa(s.nextID),
		Username:  req.Username,
		Email:     req.Email,
		FirstName: req.FirstName,
		LastName:  req.LastName,
	}
	s.users[req.Username] = &userRecord{user: u, password: req.Password}
	return u, nil
}

// Get returns the user with the given username.
func (s *UserStore) Get(username string) (model.User, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	rec, ok := s.users[username]
	if !ok {
		return model.User{}, false
	}
	return rec.user, true
}
