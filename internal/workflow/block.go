package workflow

// BlockType discriminates the question and layout blocks of a form.
type BlockType string

const (
	BlockShortText      BlockType = "short_text"
	BlockLongText       BlockType = "long_text"
	BlockEmail          BlockType = "email"
	BlockNumber         BlockType = "number"
	BlockDate           BlockType = "date"
	BlockMultipleChoice BlockType = "multiple_choice"
	BlockCheckboxGroup  BlockType = "checkbox_group"
	BlockDropdown       BlockType = "dropdown"
	BlockRating         BlockType = "rating"
	BlockAIConversation BlockType = "ai_conversation"

	// Layout markers carry no answer.
	BlockWelcome   BlockType = "welcome"
	BlockStatement BlockType = "statement"
	BlockPageBreak BlockType = "page_break"
	BlockThankYou  BlockType = "thank_you"
)

var knownTypes = map[BlockType]bool{
	BlockShortText:      true,
	BlockLongText:       true,
	BlockEmail:          true,
	BlockNumber:         true,
	BlockDate:           true,
	BlockMultipleChoice: true,
	BlockCheckboxGroup:  true,
	BlockDropdown:       true,
	BlockRating:         true,
	BlockAIConversation: true,
	BlockWelcome:        true,
	BlockStatement:      true,
	BlockPageBreak:      true,
	BlockThankYou:       true,
}

// Known reports whether t is one of the block types the builder produces.
func (t BlockType) Known() bool { return knownTypes[t] }

// IsChoice reports whether answers to t are option selections.
func (t BlockType) IsChoice() bool {
	switch t {
	case BlockMultipleChoice, BlockCheckboxGroup, BlockDropdown:
		return true
	}
	return false
}

// Block is a single question or content step of a form.
// The workflow engine only reads blocks; the builder owns their lifecycle.
type Block struct {
	ID         string                 `json:"id" yaml:"id"`
	OrderIndex int                    `json:"order_index" yaml:"order_index"`
	Type       BlockType              `json:"type" yaml:"type"`
	Settings   map[string]interface{} `json:"settings,omitempty" yaml:"settings,omitempty"`
}
