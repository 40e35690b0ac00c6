package store

func (db *DB) Migrate() error {
	if err := createRecordsTable(db); err != nil {
		return err
	}
	if err := createDeploymentsTable(db); err != nil {
		return err
	}
	if err := createSecretsTable(db); err != nil {
		return err
	}
	if err := createTargetSpecsTable(db); err != nil {
		return err
	}
	return nil
}
