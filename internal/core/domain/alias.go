package domain

import (
	"crypto/rand"
	"encoding/hex"
	"fmt"
	mrand "math/rand/v2"
)

var aliasAdjectives = []string{
	"Neon", "Cyber", "Cosmic", "Lunar", "Solar", "Velvet", "Electric", "Silent", "Rapid", "Misty",
	"Happy", "Lucky", "Sunny", "Calm", "Wild", "Bold", "Brave", "Swift", "Quiet", "Loud",
	"Red", "Blue", "Green", "Gold", "Silver", "Crystal", "Iron", "Steel", "Glass", "Stone",
}

var aliasNouns = []string{
	"Rider", "Walker", "Dreamer", "Surfer", "Glider", "Seeker", "Finder", "Keeper", "Watcher", "Runner",
	"Tiger", "Lion", "Wolf", "Eagle", "Hawk", "Bear", "Fox", "Owl", "Cat", "Dog",
	"Star", "Moon", "Sun", "Sky", "Cloud", "Rain", "Storm", "Wind", "Wave", "Ocean",
}

// AnonymousAlias generates a display name for posters who did not pick one.
func AnonymousAlias() string {
	adj := aliasAdjectives[mrand.IntN(len(aliasAdjectives))]
	noun := aliasNouns[mrand.IntN(len(aliasNouns))]
	return fmt.Sprintf("%s %s %d", adj, noun, mrand.IntN(100))
}

// NewAvatarSeed generates a random seed the client turns into an avatar.
func NewAvatarSeed() string {
	b := make([]byte, 8)
	if _, err := rand.Read(b); err != nil {
		return "seed-fallback"
	}
	return hex.EncodeToString(b)
}
