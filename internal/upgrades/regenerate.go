package upgrades

// MinSurvivingBlocks is the fewest valid suggestions accepted without asking
// for a regeneration.
const MinSurvivingBlocks = 3

// CorrectiveInstruction is appended to the generation prompt for the single
// regeneration pass.
const CorrectiveInstruction = `IMPORTANT: Several of your previous suggestions were rejected.
Only suggest cards that exist, that are NOT already in the deck, and that fit the deck's color identity.
Every CUT must name a card that is currently in the deck.
Never suggest a card that is strictly worse than the card it replaces.
Keep exactly the ADD/CUT line format described above, one suggestion per ADD line.`

// NeedsRegeneration decides whether one more generation attempt is warranted.
// A repair pass never asks again, which bounds the retry to one.
func NeedsRegeneration(total, surviving int, repairPass bool) bool {
	if repairPass {
		return false
	}
	return total > 0 && surviving < MinSurvivingBlocks
}
