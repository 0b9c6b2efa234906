// Package names makes memorable room names such as "sleepy-otter-ramen".
package names

import (
	"crypto/rand"
	"math/big"
	"strings"
)

var adjectives = []string{
	"tiny", "happy", "sleepy", "fluffy", "sparkly", "cheery", "silly", "jolly", "cozy", "shiny",
	"golden", "silver", "crimson", "emerald", "purple", "bright", "gentle", "brave", "calm", "swift",
}

var animals = []string{
	"kitten", "puppy", "bunny", "panda", "koala", "fox", "otter", "hedgehog", "squirrel", "hamster",
	"penguin", "flamingo", "pelican", "sparrow", "robin", "toucan", "parrot", "dolphin", "whale", "narwhal",
}

var dishes = []string{
	"pancake", "waffle", "sushi", "ramen", "curry", "taco", "burrito", "biryani", "paella", "risotto",
	"dumpling", "noodle", "omelette", "kebab", "falafel", "samosa", "poutine", "dimsum", "gnocchi", "fondue",
}

// Generate returns a random adjective-animal-dish room name.
func Generate() string {
	parts := []string{pick(adjectives), pick(animals), pick(dishes)}
	return strings.Join(parts, "-")
}

// pick returns a cryptographically random element of words.
func pick(words []string) string {
	n, err := rand.Int(rand.Reader, big.NewInt(int64(len(words))))
	if err != nil {
		return words[0]
	}
	return words[n.Int64()]
}
