package wordlist

// Default is the built-in practice vocabulary.
var Default = []string{
	"the", "quick", "brown", "fox", "jumps", "over", "lazy", "dog",
	"hello", "world", "code", "type", "fast", "slow", "good", "bad",
	"night", "day", "sun", "moon", "star", "sky", "tree", "leaf",
	"water", "fire", "earth", "wind", "light", "dark", "time", "space",
	"love", "hate", "happy", "sad", "big", "small", "new", "old",
	"yes", "no", "maybe", "never", "always", "sometimes", "often", "rarely",
}
