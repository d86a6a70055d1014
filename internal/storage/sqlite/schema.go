// ABOUTME: SQLite database schema for documents, chunks and conversation threads
// ABOUTME: Creates all tables and indexes idempotently at open time
package sqlite

// Schema contains all SQL statements for database initialization
const Schema = `
-- Uploaded reference documents
CREATE TABLE IF NOT EXISTS documents (
    id TEXT PRIMARY KEY,
    scope_id TEXT NOT NULL,
    file_name TEXT NOT NULL,
    mime_type TEXT,
    size_bytes INTEGER NOT NULL DEFAULT 0,
    raw_text TEXT,
    uploaded_at DATETIME NOT NULL
);

-- Embedded, header-bounded document slices
CREATE TABLE IF NOT EXISTS chunks (
    id TEXT PRIMARY KEY,
    document_id TEXT NOT NULL REFERENCES documents(id),
    scope_id TEXT NOT NULL,
    sequence_index INTEGER NOT NULL,
    total_chunks INTEGER NOT NULL,
    section TEXT,
    text TEXT NOT NULL,
    vector BLOB NOT NULL,
    created_at DATETIME DEFAULT CURRENT_TIMESTAMP,
    UNIQUE (document_id, sequence_index)
);

-- Conversation threads, namespaced by agent
CREATE TABLE IF NOT EXISTS threads (
    agent_key TEXT NOT NULL,
    thread_id TEXT NOT NULL,
    resource_id TEXT NOT NULL,
    working_memory TEXT,
    created_at DATETIME NOT NULL,
    updated_at DATETIME NOT NULL,
    PRIMARY KEY (agent_key, thread_id, resource_id)
);

-- Thread messages in submission order
CREATE TABLE IF NOT EXISTS messages (
    seq INTEGER PRIMARY KEY AUTOINCREMENT,
    agent_key TEXT NOT NULL,
    thread_id TEXT NOT NULL,
    resource_id TEXT NOT NULL,
    role TEXT NOT NULL,
    content TEXT NOT NULL,
    created_at DATETIME NOT NULL,
    FOREIGN KEY (agent_key, thread_id, resource_id)
        REFERENCES threads(agent_key, thread_id, resource_id) ON DELETE CASCADE
);

CREATE INDEX IF NOT EXISTS idx_documents_scope ON documents(scope_id);
CREATE INDEX IF NOT EXISTS idx_chunks_document ON chunks(document_id);
CREATE INDEX IF NOT EXISTS idx_chunks_scope ON chunks(scope_id);
CREATE INDEX IF NOT EXISTS idx_messages_thread ON messages(agent_key, thread_id, resource_id, seq);
`
