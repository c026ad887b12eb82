package domain

import (
	"slices"
	"time"
)

type Group struct {
	GroupID     string    `json:"id" dynamodbav:"group_id"`
	Name        string    `json:"name" dynamodbav:"name"`
	Description string    `json:"description" dynamodbav:"description"`
	Owner       string    `json:"owner" dynamodbav:"owner"`
	Members     []string  `json:"members" dynamodbav:"members"`
	CreatedAt   time.Time `json:"created" dynamodbav:"created_at"`
	UpdatedAt   time.Time `json:"updated" dynamodbav:"updated_at"`
}

func (g *Group) IsMember(username string) bool {
	return slices.Contains(g.Members, username)
}

type GroupInput struct {
	Name        string `json:"name" validate:"required,max=200"`
	Description string `json:"description" validate:"max=2000"`
}

type GroupMembersInput struct {
	GroupID   string   `json:"id" validate:"required"`
	Usernames []string `json:"usernames" validate:"required,min=1,dive,required"`
}
