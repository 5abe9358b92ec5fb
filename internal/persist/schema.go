package persist

// Schema DDL. Both dialects accept it unchanged.
const (
	createParentEntity = `CREATE TABLE parent_entity (
    id TEXT PRIMARY KEY
);`

	createChildEntity = `CREATE TABLE child_entity (
    id TEXT PRIMARY KEY,
    parent_id TEXT NOT NULL,
    FOREIGN KEY (parent_id) REFERENCES parent_entity(id)
);`

	idxChildParent = `CREATE INDEX IF NOT EXISTS idx_child_entity_parent ON child_entity(parent_id);`
)

// schemaDDL lists all statements in dependency order.
var schemaDDL = []string{
	createParentEntity,
	createChildEntity,
	idxChildParent,
}

// dropDDL lists DROP statements in reverse dependency order.
var dropDDL = []string{
	`DROP TABLE IF EXISTS child_entity;`,
	`DROP TABLE IF EXISTS parent_entity;`,
}
