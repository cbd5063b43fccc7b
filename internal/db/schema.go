package db

import "fmt"

// schemaSQL returns the database schema initialization SQL. The corpus fact
// HNSW index dimension must match the configured embedding model.
func schemaSQL(embedDimension int) string {
	return fmt.Sprintf(`
    -- ==========================================================================
    -- JOB TABLE
    -- ==========================================================================
    DEFINE TABLE IF NOT EXISTS job SCHEMAFULL;
    DEFINE FIELD IF NOT EXISTS uuid ON job TYPE string;
    DEFINE FIELD IF NOT EXISTS status ON job TYPE string DEFAULT 'pending';
    DEFINE FIELD IF NOT EXISTS error_message ON job TYPE option<string>;
    DEFINE FIELD IF NOT EXISTS report ON job TYPE option<object> FLEXIBLE;
    DEFINE FIELD IF NOT EXISTS created_at ON job TYPE datetime DEFAULT time::now();
    DEFINE FIELD IF NOT EXISTS updated_at ON job TYPE datetime DEFAULT time::now();
    DEFINE FIELD IF NOT EXISTS completed_at ON job TYPE option<datetime>;

    DEFINE INDEX IF NOT EXISTS job_uuid ON job FIELDS uuid UNIQUE;
    DEFINE INDEX IF NOT EXISTS job_status ON job FIELDS status;

    -- ==========================================================================
    -- ITEM TABLE
    -- ==========================================================================
    DEFINE TABLE IF NOT EXISTS item SCHEMAFULL;
    DEFINE FIELD IF NOT EXISTS job ON item TYPE record<job>;
    DEFINE FIELD IF NOT EXISTS type ON item TYPE string;
    DEFINE FIELD IF NOT EXISTS content ON item TYPE string;
    DEFINE FIELD IF NOT EXISTS wage ON item TYPE option<float>;
    DEFINE FIELD IF NOT EXISTS status ON item TYPE string DEFAULT 'pending';
    DEFINE FIELD IF NOT EXISTS processed_content ON item TYPE option<string>;
    DEFINE FIELD IF NOT EXISTS error_message ON item TYPE option<string>;
    DEFINE FIELD IF NOT EXISTS position ON item TYPE int;
    DEFINE FIELD IF NOT EXISTS created_at ON item TYPE datetime DEFAULT time::now();
    DEFINE FIELD IF NOT EXISTS updated_at ON item TYPE datetime DEFAULT time::now();

    DEFINE INDEX IF NOT EXISTS item_job ON item FIELDS job;

    -- ==========================================================================
    -- STEP TABLE (audit ledger)
    -- ==========================================================================
    DEFINE TABLE IF NOT EXISTS step SCHEMAFULL;
    DEFINE FIELD IF NOT EXISTS job ON step TYPE record<job>;
    DEFINE FIELD IF NOT EXISTS seq ON step TYPE int;
    DEFINE FIELD IF NOT EXISTS type ON step TYPE string;
    DEFINE FIELD IF NOT EXISTS status ON step TYPE string DEFAULT 'pending';
    DEFINE FIELD IF NOT EXISTS input ON step TYPE option<object> FLEXIBLE;
    DEFINE FIELD IF NOT EXISTS output ON step TYPE option<object> FLEXIBLE;
    DEFINE FIELD IF NOT EXISTS error_message ON step TYPE option<string>;
    DEFINE FIELD IF NOT EXISTS created_at ON step TYPE datetime DEFAULT time::now();
    DEFINE FIELD IF NOT EXISTS completed_at ON step TYPE option<datetime>;

    DEFINE INDEX IF NOT EXISTS step_job ON step FIELDS job;
    -- Sequence numbers are unique within a job
    DEFINE INDEX IF NOT EXISTS step_job_seq ON step FIELDS job, seq UNIQUE;

    -- ==========================================================================
    -- FACT TABLE (job-scoped extracted facts)
    -- ==========================================================================
    DEFINE TABLE IF NOT EXISTS fact SCHEMAFULL;
    DEFINE FIELD IF NOT EXISTS job ON fact TYPE record<job>;
    DEFINE FIELD IF NOT EXISTS step ON fact TYPE record<step>;
    DEFINE FIELD IF NOT EXISTS item ON fact TYPE option<record<item>>;
    DEFINE FIELD IF NOT EXISTS text ON fact TYPE string;
    DEFINE FIELD IF NOT EXISTS source_type ON fact TYPE string;
    DEFINE FIELD IF NOT EXISTS source_excerpt ON fact TYPE string;
    DEFINE FIELD IF NOT EXISTS confidence ON fact TYPE float DEFAULT 0.7;
    DEFINE FIELD IF NOT EXISTS validated ON fact TYPE bool DEFAULT false;
    DEFINE FIELD IF NOT EXISTS language ON fact TYPE string DEFAULT 'en';
    DEFINE FIELD IF NOT EXISTS metadata ON fact TYPE option<object> FLEXIBLE;
    DEFINE FIELD IF NOT EXISTS created_at ON fact TYPE datetime DEFAULT time::now();

    DEFINE INDEX IF NOT EXISTS fact_job ON fact FIELDS job;

    -- ==========================================================================
    -- CORPUS_FACT TABLE (long-lived validated facts, vector searchable)
    -- ==========================================================================
    DEFINE TABLE IF NOT EXISTS corpus_fact SCHEMAFULL;
    DEFINE FIELD IF NOT EXISTS text ON corpus_fact TYPE string;
    DEFINE FIELD IF NOT EXISTS language ON corpus_fact TYPE string DEFAULT 'en';
    DEFINE FIELD IF NOT EXISTS embedding ON corpus_fact TYPE option<array<float>>;
    DEFINE FIELD IF NOT EXISTS created_at ON corpus_fact TYPE datetime DEFAULT time::now();

    DEFINE INDEX IF NOT EXISTS corpus_fact_embedding ON corpus_fact FIELDS embedding HNSW DIMENSION %d DIST COSINE TYPE F32;

    -- ==========================================================================
    -- NODE TABLE (knowledge graph vertices)
    -- ==========================================================================
    DEFINE TABLE IF NOT EXISTS node SCHEMAFULL;
    DEFINE FIELD IF NOT EXISTS job ON node TYPE option<record<job>>;
    DEFINE FIELD IF NOT EXISTS kind ON node TYPE string;
    DEFINE FIELD IF NOT EXISTS value ON node TYPE string;
    DEFINE FIELD IF NOT EXISTS metadata ON node TYPE option<object> FLEXIBLE;
    DEFINE FIELD IF NOT EXISTS created_at ON node TYPE datetime DEFAULT time::now();
    DEFINE FIELD IF NOT EXISTS updated_at ON node TYPE datetime DEFAULT time::now();

    DEFINE INDEX IF NOT EXISTS node_job ON node FIELDS job;
    DEFINE INDEX IF NOT EXISTS node_kind ON node FIELDS kind;

    -- ==========================================================================
    -- RELATES TABLE (knowledge graph edges)
    -- ==========================================================================
    -- Directed multigraph: no uniqueness constraint, duplicate edges are
    -- independent justifications. Cycles are legal.
    DEFINE TABLE IF NOT EXISTS relates TYPE RELATION IN node OUT node SCHEMAFULL;
    DEFINE FIELD IF NOT EXISTS rel_type ON relates TYPE string;
    DEFINE FIELD IF NOT EXISTS confidence ON relates TYPE float DEFAULT 1.0;
    DEFINE FIELD IF NOT EXISTS metadata ON relates TYPE option<object> FLEXIBLE;
    DEFINE FIELD IF NOT EXISTS created_at ON relates TYPE datetime DEFAULT time::now();
`, embedDimension)
}
