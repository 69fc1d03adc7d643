package scorer

const rankingPrompt = `
# Task Context
You rate candidate blood unit transfers for a hospital emergency.

# Emergency
Hospital: %s
Required blood type: %s
Units needed: %d

# Candidates
One candidate per line: unit id | source location | source kind | distance km | unit blood type | days until expiry
%s

# Rules
- Return one score per candidate unit id, between 0 and 1.
- Prefer units that would otherwise expire soon, short transport distances and exact blood type matches.
- Units of the universal donor type O- are scarce; score them lower when other compatible units exist.
- Do not invent unit ids. Only score the ids listed above.

# Output Format
{"scores": [{"unit_id": "<id>", "score": <0..1>}]}
`

const rankingSystemPrompt = `You are a logistics assistant for a regional blood supply network. Answer with JSON only.`
