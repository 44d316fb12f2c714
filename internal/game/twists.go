package game

import (
	"fmt"
	"math/rand"

	"github.com/CarterLud/unotwist/internal/models"
)

// Twist keys with wired behavior.
const (
	TwistHotPotato       = "hot_potato"
	TwistHandSwap        = "hand_swap"
	TwistWildShuffle     = "wild_shuffle"
	TwistKeyboardSlam    = "keyboard_slam"
	TwistWildEcho        = "wild_echo"
	TwistUnoBomb         = "uno_bomb"
	TwistEveryoneDraws   = "everyone_draws_first_wild"
	TwistReverseWorld    = "reverse_world"
	TwistReverseDraw     = "reverse_draw"
	unoBombPenalty       = 7
	everyoneDrawsPenalty = 2
	slamPenalty          = 2
)

// TwistPool selects which twists a lobby may roll.
type TwistPool string

const (
	// TwistPoolImplemented rolls only twists that change play.
	TwistPoolImplemented TwistPool = "implemented"
	// TwistPoolAll rolls from the whole catalog, labels included.
	TwistPoolAll TwistPool = "all"
)

// ParseTwistPool validates a pool name.
func ParseTwistPool(s string) (TwistPool, error) {
	switch TwistPool(s) {
	case TwistPoolImplemented, TwistPoolAll:
		return TwistPool(s), nil
	}
	return "", fmt.Errorf("unknown twist pool %q", s)
}

var twistCatalog = []models.Twist{
	{Key: "hot_potato", Name: "Hot Potato", Description: "Every time a 0 is played, pass hands along"},
	{Key: "hand_swap", Name: "Hand Swap", Description: "Play a 7 to swap hands with the next player"},
	{Key: "draw_dump", Name: "Draw Dump", Description: "If drawn card matches discard, you must play it"},
	{Key: "color_lock", Name: "Color Lock", Description: "Declared color stays until a Wild is played"},
	{Key: "last_card_wild", Name: "Last Card Wild", Description: "Your final card must be a Wild"},
	{Key: "reverse_draw", Name: "Reverse Draw", Description: "Draw 2/+4 makes the player who played it draw"},
	{Key: "stack_chaos", Name: "Stack Chaos", Description: "Draw 2/+4 stack and penalty doubles"},
	{Key: "wild_shuffle", Name: "Wild Shuffle", Description: "Every Wild shuffles discard into deck"},
	{Key: "color_swap", Name: "Color Swap", Description: "Wild causes hand pass left"},
	{Key: "card_gift", Name: "Card Gift", Description: "When you play Skip, give one card to another"},
	{Key: "mirror_match", Name: "Mirror Match", Description: "Same exact card can be slapped out of turn"},
	{Key: "quick_draw", Name: "Quick Draw", Description: "Two same numbers in a row, others draw 2"},
	{Key: "exploding_color", Name: "Exploding Color", Description: "Three same color in a row, everyone draws 3"},
	{Key: "uno_bomb", Name: "UNO Bomb", Description: "Forget UNO? Draw 7"},
	{Key: "everyone_draws_first_wild", Name: "Everyone Draws", Description: "First Wild forces all to draw 2"},
	{Key: "keyboard_slam", Name: "Keyboard Slam", Description: "On Wild, last to press Space draws 2"},
	{Key: "double_play", Name: "Double Play", Description: "Must play two of same number if possible"},
	{Key: "no_numbers", Name: "No Numbers", Description: "Only action cards; numbers only by stacking"},
	{Key: "reverse_world", Name: "Reverse World", Description: "Skips act as Reverses and vice versa"},
	{Key: "lucky_13", Name: "Lucky 13", Description: "If you reach 13 cards, discard half"},
	{Key: "sudden_death", Name: "Sudden Death", Description: "Rule mistake knocks you out"},
	{Key: "wild_draw_swap", Name: "Wild Draw Swap", Description: "+4 makes next player swap hands instead"},
	{Key: "uno_roulette", Name: "UNO Roulette", Description: "Roll a die at start of turn"},
	{Key: "last_laugh", Name: "Last Laugh", Description: "Winner makes one opponent draw 5"},
	{Key: "jokers_rule", Name: "Joker's Rule", Description: "Dealer invents a house rule"},
	{Key: "draw_echo", Name: "Draw Echo", Description: "If you draw 2+, choose another to draw 1"},
	{Key: "skip_chain", Name: "Skip Chain", Description: "Two Skips in a row skip third player"},
	{Key: "color_bomb", Name: "Color Bomb", Description: "Only one color in hand, draw 4"},
	{Key: "wild_echo", Name: "Wild Echo", Description: "Whenever you play a Wild, draw 1"},
	{Key: "reverse_chain", Name: "Reverse Chain", Description: "Two Reverses cancel each other"},
}

var implementedTwists = map[string]bool{
	TwistHotPotato:     true,
	TwistHandSwap:      true,
	TwistWildShuffle:   true,
	TwistKeyboardSlam:  true,
	TwistWildEcho:      true,
	TwistUnoBomb:       true,
	TwistEveryoneDraws: true,
	TwistReverseWorld:  true,
	TwistReverseDraw:   true,
}

// Twists returns a copy of the full catalog.
func Twists() []models.Twist {
	out := make([]models.Twist, len(twistCatalog))
	copy(out, twistCatalog)
	return out
}

// TwistByKey looks up a cataloged twist.
func TwistByKey(key string) (models.Twist, bool) {
	for _, t := range twistCatalog {
		if t.Key == key {
			return t, true
		}
	}
	return models.Twist{}, false
}

// IsImplemented reports whether the twist changes play.
func IsImplemented(key string) bool {
	return implementedTwists[key]
}

// PickTwist draws a twist uniformly from the pool.
func PickTwist(rng *rand.Rand, pool TwistPool) models.Twist {
	candidates := twistCatalog
	if pool != TwistPoolAll {
		candidates = make([]models.Twist, 0, len(implementedTwists))
		for _, t := range twistCatalog {
			if implementedTwists[t.Key] {
				candidates = append(candidates, t)
			}
		}
	}
	return candidates[rng.Intn(len(candidates))]
}
