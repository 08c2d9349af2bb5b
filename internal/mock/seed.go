package mock

import (
	"time"

	"github.com/pbaille/diffadvisor/internal/domain"
)

// DefaultNoteID is the note selected when a knowledge view first opens
const DefaultNoteID = "note-1"

// KnownCommit is the seeded commit that has a debrief and a diff
const KnownCommit = "a3f7c2d"

func ts(s string) time.Time {
	t, err := time.Parse(time.RFC3339, s)
	if err != nil {
		panic(err)
	}
	return t
}

func seedProjects() []domain.Project {
	analyzed := ts("2026-02-19T08:30:00Z")
	return []domain.Project{{
		ID:             "proj-1",
		Name:           "e-commerce-api",
		Path:           "~/projects/e-commerce-api",
		Language:       "TypeScript",
		Frameworks:     []string{"Express", "Prisma"},
		ActiveSkills:   []string{"security-general", "nodejs-express", "sql-databases", "rest-api"},
		CreatedAt:      ts("2026-02-10T10:00:00Z"),
		LastAnalyzedAt: &analyzed,
	}}
}

func seedCommits() []domain.Commit {
	return []domain.Commit{
		{Hash: "a3f7c2d", Message: "feat: add user authentication endpoint", Author: "dev", Timestamp: "12 min ago", FilesChanged: 3, Additions: 87, Deletions: 4, Status: domain.StatusPending},
		{Hash: "e91b4f8", Message: "fix: update database connection pooling", Author: "dev", Timestamp: "2 hours ago", FilesChanged: 2, Additions: 23, Deletions: 11, Status: domain.StatusPending},
		{Hash: "7d2e5a1", Message: "feat: add product listing API", Author: "dev", Timestamp: "yesterday", FilesChanged: 4, Additions: 112, Deletions: 8, Status: domain.StatusReviewed},
		{Hash: "b8c3f01", Message: "refactor: extract validation middleware", Author: "dev", Timestamp: "2 days ago", FilesChanged: 5, Additions: 45, Deletions: 67, Status: domain.StatusReviewed},
	}
}

const seedDiff = `@@ -1,4 +1,48 @@
 import express from 'express';
+import bcrypt from 'bcrypt';
+import jwt from 'jsonwebtoken';
+import { PrismaClient } from '@prisma/client';
+
+const router = express.Router();
+const prisma = new PrismaClient();
+const JWT_SECRET = 'my-super-secret-key-123';
+
+router.post('/register', async (req, res) => {
+  const { email, password, name } = req.body;
+  const hashedPassword = await bcrypt.hash(password, 10);
+  const user = await prisma.user.create({
+    data: { email, password: hashedPassword, name },
+  });
+  res.status(201).json(user);
+});
+
+router.post('/login', async (req, res) => {
+  const { email, password } = req.body;
+  const user = await prisma.user.findUnique({ where: { email } });
+  if (!user || !(await bcrypt.compare(password, user.password))) {
+    return res.status(401).json({ error: 'Invalid credentials' });
+  }
+  const token = jwt.sign({ userId: user.id }, JWT_SECRET, { expiresIn: '24h' });
+  res.json({ token });
+});
+
+router.get('/me', async (req, res) => {
+  const token = req.headers.authorization?.split(' ')[1];
+  const payload = jwt.verify(token, JWT_SECRET);
+  const user = await prisma.user.findUnique({ where: { id: payload.userId } });
+  res.json(user);
+});
+
+export default router;
`

func seedDebriefs() map[string]*domain.DebriefResult {
	return map[string]*domain.DebriefResult{
		KnownCommit: {
			ID:         "debrief-1",
			CommitHash: KnownCommit,
			ArchitecturalSummary: "This commit adds JWT-based authentication to the Express API with three endpoints: " +
				"registration, login and profile retrieval. The server issues signed tokens instead of keeping sessions, " +
				"so authentication state lives with the client.",
			PatternsIdentified: []string{
				"Stateless JWT Authentication",
				"Express Router Module Pattern",
				"Password Hashing with bcrypt",
			},
			DecisionsMade: []domain.Decision{
				{
					Decision:     "JWT tokens instead of server-side sessions",
					Alternatives: "Server-side sessions backed by a shared store such as Redis or PostgreSQL, where revocation is a row delete.",
					Tradeoffs:    "Tokens scale horizontally without shared state but cannot be revoked before expiry. Sessions revoke instantly but need a central store.",
				},
				{
					Decision:     "24-hour token expiry with no refresh token",
					Alternatives: "Short-lived access tokens with a refresh token kept in an httpOnly cookie.",
					Tradeoffs:    "One long-lived token is simpler, but a stolen token stays valid for a full day.",
				},
			},
			Gaps: []domain.Gap{
				{ID: "gap-1", Severity: domain.SeverityCritical, Category: domain.GapSecurity,
					Description: "JWT secret is hardcoded in source code",
					Explanation: "Anyone with repository access can forge a valid token for any user.",
					Suggestion:  "Read the secret from the environment and generate it as at least 256 random bits."},
				{ID: "gap-2", Severity: domain.SeverityCritical, Category: domain.GapSecurity,
					Description: "No input validation on registration or login",
					Explanation: "Fields from req.body reach the database unchecked, including malformed emails and empty passwords.",
					Suggestion:  "Validate the body with a schema library, enforce a minimum password length and reject unknown fields."},
				{ID: "gap-3", Severity: domain.SeverityWarning, Category: domain.GapSecurity,
					Description: "No rate limiting on authentication endpoints",
					Explanation: "An attacker can try thousands of passwords per second against /login.",
					Suggestion:  "Limit /login and /register per client address, for example five attempts per minute."},
				{ID: "gap-4", Severity: domain.SeverityWarning, Category: domain.GapReliability,
					Description: "No error handling for database failures",
					Explanation: "Unique violations and connection errors surface as unhandled rejections and leak stack traces.",
					Suggestion:  "Catch Prisma errors, map unique violations to 409 and connectivity errors to 503."},
				{ID: "gap-5", Severity: domain.SeverityInfo, Category: domain.GapSecurity,
					Description: "Registration response returns the password hash",
					Explanation: "The created user object is serialized as-is, including the hashed password.",
					Suggestion:  "Return an explicit projection without the password field, optionally with a fresh token."},
			},
			CheckpointQuestions: []domain.CheckpointQuestion{
				{ID: "q-1",
					Question:           "If a user changes their password, what happens to previously issued tokens, and how would you fix that here?",
					Concept:            "token revocation in stateless auth",
					GoodAnswerIncludes: "Tokens stay valid until expiry. Options: a denylist, a per-user token version checked on verify, or short-lived tokens with refresh tokens."},
				{ID: "q-2",
					Question:           "An attacker sends 10,000 login requests per second. What happens, and what are the two most effective defenses?",
					Concept:            "brute force protection and rate limiting",
					GoodAnswerIncludes: "bcrypt on every attempt saturates the CPU. Defenses: per-address rate limiting and account lockout after repeated failures."},
				{ID: "q-3",
					Question:           "What is the risk on the line defining JWT_SECRET, and what would an attacker need to exploit it?",
					Concept:            "secrets management",
					GoodAnswerIncludes: "The secret is in the repository, so anyone who can read it can mint tokens for any user id. Move it to the environment."},
			},
			KnowledgeBaseNotes: []domain.KnowledgeBaseNote{{
				Title:    "JWT Authentication",
				Category: "concepts/security",
				Tags:     []string{"security", "authentication", "jwt", "stateless"},
				LinksTo:  []string{"Rate Limiting", "Input Validation", "Secrets Management"},
				Content:  "# JWT Authentication\n\nSigned tokens carry user claims so the server can authenticate without a session store.\n\nSee also: [[Rate Limiting]], [[Input Validation]], [[Secrets Management]]",
			}},
			SkillsUsed: []string{"security-general", "nodejs-express", "rest-api"},
			Status:     domain.StatusPending,
			CreatedAt:  ts("2026-02-19T08:42:00Z"),
		},
	}
}

func seedNote(id, title, path string, auto bool, tags []string, created, content string) domain.KnowledgeNote {
	return domain.KnowledgeNote{
		ID:            id,
		Title:         title,
		CategoryPath:  path,
		FilePath:      domain.NoteFilePath(path, title),
		AutoGenerated: auto,
		Tags:          tags,
		Content:       content,
		CreatedAt:     ts(created),
		UpdatedAt:     ts(created),
	}
}

func seedNotes() []domain.KnowledgeNote {
	return []domain.KnowledgeNote{
		seedNote("note-1", "JWT Authentication", "concepts/security", true,
			[]string{"security", "authentication", "jwt", "stateless"}, "2026-02-19T08:45:00Z",
			"# JWT Authentication\n\nJSON Web Tokens encode user claims in a signed token so the server can verify a request without a database lookup.\n\n## Trade-offs\n\n- No shared session store needed\n- Revocation before expiry needs extra machinery\n\nSee also: [[Rate Limiting]], [[Input Validation]]"),
		seedNote("note-2", "Input Validation", "concepts/security", true,
			[]string{"security", "validation", "backend"}, "2026-02-19T08:45:00Z",
			"# Input Validation\n\nEvery field crossing a system boundary is validated on the server: type, format, length, range and presence.\n\nSee also: [[JWT Authentication]]"),
		seedNote("note-3", "Rate Limiting", "concepts/security", false,
			[]string{"security", "performance", "api"}, "2026-02-18T14:00:00Z",
			"# Rate Limiting\n\nBound the requests a client may make per window. Fixed window, sliding window and token bucket are the usual strategies."),
		seedNote("note-4", "Event Loop", "languages/javascript", false,
			[]string{"javascript", "runtime", "async"}, "2026-02-15T10:00:00Z",
			"# Event Loop\n\nNode.js runs callbacks from a queue once the call stack is empty. Phases: timers, I/O callbacks, poll, check, close."),
		seedNote("note-5", "Closures & Scope", "languages/javascript", false,
			[]string{"javascript", "fundamentals"}, "2026-02-14T10:00:00Z",
			"# Closures & Scope\n\nA closure keeps the variables of the scope it was created in alive after that scope returns."),
		seedNote("note-6", "Promises & Async Await", "languages/javascript", false,
			[]string{"javascript", "async", "fundamentals"}, "2026-02-14T11:00:00Z",
			"# Promises & Async Await\n\nA promise is pending, fulfilled or rejected. async/await reads like sequential code over promises."),
		seedNote("note-7", "Decorators", "languages/python", false,
			[]string{"python", "fundamentals"}, "2026-02-13T10:00:00Z",
			"# Decorators\n\nFunctions that wrap other functions to change their behavior, used heavily by Django and Flask."),
		seedNote("note-8", "Generators & Yield", "languages/python", false,
			[]string{"python", "iteration"}, "2026-02-13T11:00:00Z",
			"# Generators & Yield\n\nA generator produces values lazily with yield, keeping its frame suspended between calls."),
		seedNote("note-9", "REST API Design", "concepts/architecture", false,
			[]string{"api", "architecture", "backend"}, "2026-02-12T10:00:00Z",
			"# REST API Design\n\nResources as nouns, HTTP verbs for actions, precise status codes, consistent error bodies and paginated lists."),
		seedNote("note-10", "Middleware Pattern", "concepts/architecture", false,
			[]string{"architecture", "backend", "express"}, "2026-02-12T11:00:00Z",
			"# Middleware Pattern\n\nA chain of handlers that each see the request, may act on it, and pass control to the next one."),
		seedNote("note-11", "Pre-Deploy Security", "checklists", false,
			[]string{"security", "checklist"}, "2026-02-11T10:00:00Z",
			"# Pre-Deploy Security\n\n- [ ] Secrets come from the environment\n- [ ] Inputs validated\n- [ ] Auth routes rate limited"),
		seedNote("note-12", "Production Readiness", "checklists", false,
			[]string{"operations", "checklist"}, "2026-02-11T11:00:00Z",
			"# Production Readiness\n\n- [ ] Health check endpoint\n- [ ] Structured logging\n- [ ] Graceful shutdown"),
	}
}

func seedSettings() domain.AppSettings {
	s := domain.DefaultSettings()
	s.Project.MonitoredDirectory = "~/projects/e-commerce-api"
	s.AI.APIKey = "sk-ant-mock-key"
	s.AI.WebSearch = true
	return s
}

// canned evaluation returned for any non-empty answer
func seedEvaluation() domain.Evaluation {
	return domain.Evaluation{
		Score:    7,
		Feedback: "Good understanding of the core concept. You identified the stateless nature of the token and the revocation problem. Consider token versioning as an alternative to a denylist.",
		KeyPointsCovered: []string{
			"Tokens remain valid until expiry",
			"Need for a revocation mechanism",
		},
		KeyPointsMissed: []string{
			"Token versioning approach",
			"Short-lived tokens with refresh tokens",
		},
	}
}
