package models

import "time"

const DefaultPic = "https://i.imgur.com/xCvzudW.png"

type User struct {
	ID           string    `json:"id"`
	Username     string    `json:"username"`
	PasswordHash string    `json:"-"`
	Bio          string    `json:"bio"`
	Pic          string    `json:"pic"`
	Friends      []string  `json:"friends"`
	Items        []string  `json:"items"`
	CreatedAt    time.Time `json:"created_at"`
}

// HasFriend reports whether id is in the user's friend set.
func (u *User) HasFriend(id string) bool {
	for _, f := range u.Friends {
		if f == id {
			return true
		}
	}
	return false
}
