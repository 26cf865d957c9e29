package sop

import (
	"sort"
	"sync"
)

// Builtin SOP names.
const (
	NameDefault       = "default"
	NameHotfix        = "hotfix"
	NameRefactor      = "refactor"
	NameDocumentation = "documentation"
)

var defaultSOP = &SOP{
	Name: NameDefault,
	Instructions: `# Default SOP

## Methodology: Test-Driven Development
1. Write failing tests FIRST that define the expected behavior
2. Run tests to confirm they fail
3. Implement the minimum code to make tests pass
4. Refactor while keeping tests green
5. Never commit code without passing tests

## Code Standards
- Small functions, shallow nesting
- Validate inputs at system boundaries
- Prefer the standard toolchain over ad-hoc scripts

## Error Handling
- Handle every error explicitly
- Wrap external calls (network, file I/O, subprocess) with context
`,
	Hooks: []HookSpec{
		{Event: "PreToolUse", Matcher: "Bash", Command: "echo 'SOP: Bash tool invoked'"},
	},
	VerificationCommands: []string{
		"make test",
	},
}

var hotfixSOP = &SOP{
	Name: NameHotfix,
	Instructions: `# Hotfix SOP

## Emergency Fix Procedure
1. Identify the root cause from the error or incident description
2. Write a minimal, targeted fix (NO refactoring)
3. Add a regression test for the specific failure
4. Verify the fix resolves the original issue

## Constraints
- Touch ONLY the files necessary to fix the issue
- Do NOT refactor surrounding code
- Do NOT add features
- Regression test is MANDATORY
`,
	VerificationCommands: []string{
		"make test",
	},
}

var refactorSOP = &SOP{
	Name: NameRefactor,
	Instructions: `# Refactor SOP

## Refactoring Procedure
1. Ensure full test coverage exists for the code being refactored
2. Run tests to confirm all pass (green baseline)
3. Apply refactoring transformations incrementally
4. Run tests after each transformation
5. Commit after each successful transformation

## Constraints
- Do NOT change behavior (tests must stay green throughout)
- Do NOT add new features during refactoring
- Each commit should be a single, named refactoring
`,
	VerificationCommands: []string{
		"make test",
	},
}

var documentationSOP = &SOP{
	Name: NameDocumentation,
	Instructions: `# Documentation SOP

## Documentation Procedure
1. Read the code being documented
2. Document all public functions, types, and packages
3. Create or update README.md with usage examples
4. Add inline comments only where logic is non-obvious

## Constraints
- Do NOT modify any code logic
- Examples must be runnable
`,
}

var registry = struct {
	mu   sync.RWMutex
	sops map[string]*SOP
}{
	sops: map[string]*SOP{
		NameDefault:       defaultSOP,
		NameHotfix:        hotfixSOP,
		NameRefactor:      refactorSOP,
		NameDocumentation: documentationSOP,
	},
}

// Lookup returns the registered SOP with the given name, or nil.
func Lookup(name string) *SOP {
	registry.mu.RLock()
	defer registry.mu.RUnlock()
	return registry.sops[name]
}

// Register adds an SOP to the registry, replacing any existing entry with
// the same name.
func Register(s *SOP) {
	registry.mu.Lock()
	defer registry.mu.Unlock()
	registry.sops[s.Name] = s
}

// Names returns the registered SOP names in sorted order.
func Names() []string {
	registry.mu.RLock()
	defer registry.mu.RUnlock()

	names := make([]string, 0, len(registry.sops))
	for name := range registry.sops {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
