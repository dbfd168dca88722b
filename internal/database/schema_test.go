package database

import (
	"io/fs"
	"strings"
	"testing"

	"shop-api/migrations"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func readMigration(t *testing.T, name string) string {
	t.Helper()
	content, err := fs.ReadFile(migrations.FS, name)
	require.NoError(t, err, "reading %s", name)
	return string(content)
}

func TestMigrationFilesExist(t *testing.T) {
	expectedMigrations := []string{
		"00001_create_users_table.sql",
		"00002_create_refresh_tokens_table.sql",
		"00003_create_categories_table.sql",
		"00004_create_products_table.sql",
		"00005_create_orders_table.sql",
		"00006_create_order_items_table.sql",
		"00007_create_updated_at_trigger.sql",
	}

	for _, migration := range expectedMigrations {
		_, err := fs.Stat(migrations.FS, migration)
		assert.NoError(t, err, "migration file %s is not embedded", migration)
	}
}

func TestMigrationFilesHaveUpAndDown(t *testing.T) {
	files, err := fs.Glob(migrations.FS, "*.sql")
	require.NoError(t, err)
	require.NotEmpty(t, files, "no SQL migration files embedded")

	for _, file := range files {
		content := readMigration(t, file)

		for _, directive := range []string{
			"-- +goose Up",
			"-- +goose Down",
			"-- +goose StatementBegin",
			"-- +goose StatementEnd",
		} {
			assert.Contains(t, content, directive, "migration %s", file)
		}
	}
}

func TestMigrationFilesCreateExpectedTables(t *testing.T) {
	expectedTables := map[string]string{
		"users":          "00001_create_users_table.sql",
		"refresh_tokens": "00002_create_refresh_tokens_table.sql",
		"categories":     "00003_create_categories_table.sql",
		"products":       "00004_create_products_table.sql",
		"orders":         "00005_create_orders_table.sql",
		"order_items":    "00006_create_order_items_table.sql",
	}

	for tableName, migrationFile := range expectedTables {
		content := readMigration(t, migrationFile)
		assert.Contains(t, content, "CREATE TABLE IF NOT EXISTS "+tableName)
		assert.Contains(t, content, "DROP TABLE IF EXISTS "+tableName)
	}
}

func TestProductsTableGuardsPriceAndStock(t *testing.T) {
	content := readMigration(t, "00004_create_products_table.sql")

	for _, column := range []string{
		"id BIGSERIAL PRIMARY KEY",
		"price DECIMAL(10, 2)",
		"CHECK (price >= 0)",
		"stock INTEGER",
		"CHECK (stock >= 0)",
		"is_active BOOLEAN",
		"FOREIGN KEY (category_id)",
	} {
		assert.Contains(t, content, column)
	}
}

func TestOrderItemsProtectReferencedProducts(t *testing.T) {
	content := readMigration(t, "00006_create_order_items_table.sql")

	assert.Contains(t, content, "REFERENCES orders(id) ON DELETE CASCADE")
	assert.Contains(t, content, "REFERENCES products(id) ON DELETE RESTRICT")
	assert.Contains(t, content, "CHECK (quantity >= 1)")
}

func TestOrdersTableHasStatusConstraint(t *testing.T) {
	content := readMigration(t, "00005_create_orders_table.sql")

	for _, status := range []string{"pending", "processing", "shipped", "completed", "cancelled"} {
		assert.True(t, strings.Contains(content, "'"+status+"'"), "status constraint missing %s", status)
	}
}
