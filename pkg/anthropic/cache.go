package anthropic

// KnowledgeSystem builds the system prompt for knowledge-grounded review:
// fixed instructions followed by the reference documents, cached for an
// hour so every batch prompt of a run reuses the same prefix. Empty parts
// are dropped.
func KnowledgeSystem(instructions, documents string) []SystemBlock {
	var blocks []SystemBlock
	for _, t := range []string{instructions, documents} {
		if t != "" {
			blocks = append(blocks, SystemBlock{Text: t})
		}
	}
	if len(blocks) == 0 {
		return nil
	}
	blocks[len(blocks)-1].Cache = &CacheControl{TTL: "1h"}
	return blocks
}
