package domain

import "time"

// AgentRole enumerates internal operator roles.
type AgentRole string

const (
	AgentRoleAgent AgentRole = "AGENT"
	AgentRoleAdmin AgentRole = "ADMIN"
)

// Agent models a support operator who resolves and closes tickets.
type Agent struct {
	ID           string
	Name         string
	Email        string
	PasswordHash string
	Role         AgentRole
	Active       bool
	CreatedAt    time.Time
	UpdatedAt    time.Time
}
