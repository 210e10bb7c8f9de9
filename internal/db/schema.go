package db

// SchemaSQL contains the run-history schema initialization SQL.
const SchemaSQL = `
    -- ==========================================================================
    -- RUN TABLE
    -- ==========================================================================
    DEFINE TABLE IF NOT EXISTS run SCHEMAFULL;
    DEFINE FIELD IF NOT EXISTS status ON run TYPE string;
    DEFINE FIELD IF NOT EXISTS tenant ON run TYPE option<string>;
    DEFINE FIELD IF NOT EXISTS agent_count ON run TYPE int DEFAULT 0;
    DEFINE FIELD IF NOT EXISTS record_count ON run TYPE int DEFAULT 0;
    DEFINE FIELD IF NOT EXISTS mapping_count ON run TYPE int DEFAULT 0;
    DEFINE FIELD IF NOT EXISTS unpaired_object_id ON run TYPE option<string>;
    DEFINE FIELD IF NOT EXISTS filtered_out ON run TYPE int DEFAULT 0;
    DEFINE FIELD IF NOT EXISTS excluded ON run TYPE int DEFAULT 0;
    DEFINE FIELD IF NOT EXISTS strategy ON run TYPE string;
    DEFINE FIELD IF NOT EXISTS artifact_path ON run TYPE option<string>;
    DEFINE FIELD IF NOT EXISTS error ON run TYPE option<string>;
    DEFINE FIELD IF NOT EXISTS started_at ON run TYPE datetime DEFAULT time::now();
    DEFINE FIELD IF NOT EXISTS completed_at ON run TYPE option<datetime>;

    DEFINE INDEX IF NOT EXISTS run_started ON run FIELDS started_at;
    DEFINE INDEX IF NOT EXISTS run_status ON run FIELDS status;

    -- ==========================================================================
    -- MAPPING TABLE (one row per agent per run)
    -- ==========================================================================
    DEFINE TABLE IF NOT EXISTS mapping SCHEMAFULL;
    DEFINE FIELD IF NOT EXISTS run_id ON mapping TYPE string;
    DEFINE FIELD IF NOT EXISTS agent_name ON mapping TYPE string;
    DEFINE FIELD IF NOT EXISTS object_id ON mapping TYPE string;
    DEFINE FIELD IF NOT EXISTS confidence ON mapping TYPE string;
    DEFINE FIELD IF NOT EXISTS time_delta_seconds ON mapping TYPE float;
    DEFINE FIELD IF NOT EXISTS position ON mapping TYPE int;

    DEFINE INDEX IF NOT EXISTS mapping_run ON mapping FIELDS run_id;
    DEFINE INDEX IF NOT EXISTS mapping_agent ON mapping FIELDS agent_name;
`
